package handlers

import (
	"sync"
	"time"

	"github.com/port-labs/port-sync-engine/pkg/engine"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
)

// ScheduledResyncManager re-runs a full sync on a fixed interval.
type ScheduledResyncManager struct {
	runner         CycleRunner
	userAgent      port.UserAgentType
	resyncInterval time.Duration
	stopCh         chan struct{}
	lastResyncTime time.Time
	resyncMutex    sync.RWMutex
	isRunning      bool
	runningMutex   sync.Mutex
}

func NewScheduledResyncManager(runner CycleRunner, userAgent port.UserAgentType, resyncIntervalMinutes uint) *ScheduledResyncManager {
	return &ScheduledResyncManager{
		runner:         runner,
		userAgent:      userAgent,
		resyncInterval: time.Minute * time.Duration(resyncIntervalMinutes),
		stopCh:         make(chan struct{}),
		lastResyncTime: time.Now(),
	}
}

// Start begins the scheduled resync process
func (m *ScheduledResyncManager) Start() {
	m.runningMutex.Lock()
	if m.isRunning {
		m.runningMutex.Unlock()
		logger.Warning("Scheduled resync manager is already running")
		return
	}
	m.isRunning = true
	m.runningMutex.Unlock()

	m.resyncMutex.Lock()
	m.lastResyncTime = time.Now()
	m.resyncMutex.Unlock()

	go m.runResyncTicker()
	go m.runHealthCheck()

	logger.Infof("Scheduled resync manager started with interval: %v", m.resyncInterval)
}

// Stop gracefully stops the scheduled resync process
func (m *ScheduledResyncManager) Stop() {
	m.runningMutex.Lock()
	defer m.runningMutex.Unlock()

	if !m.isRunning {
		logger.Warning("Scheduled resync manager is not running")
		return
	}

	logger.Info("Stopping scheduled resync manager")
	close(m.stopCh)
	m.isRunning = false
}

// GetLastResyncTime returns the last resync time
func (m *ScheduledResyncManager) GetLastResyncTime() time.Time {
	m.resyncMutex.RLock()
	defer m.resyncMutex.RUnlock()
	return m.lastResyncTime
}

// runResyncTicker runs the main resync ticker loop
func (m *ScheduledResyncManager) runResyncTicker() {
	// Panic recovery keeps the ticker goroutine from dying silently.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic in resync ticker goroutine: %v", r)
			logger.Error("Resync ticker goroutine crashed and will not restart automatically")
		}
	}()

	ticker := time.NewTicker(m.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performScheduledResync()
		case <-m.stopCh:
			logger.Info("Stopping resync ticker")
			return
		}
	}
}

// performScheduledResync executes a single scheduled resync operation
func (m *ScheduledResyncManager) performScheduledResync() {
	logger.Infof("Starting scheduled resync (interval: %v)", m.resyncInterval)

	m.resyncMutex.Lock()
	m.lastResyncTime = time.Now()
	m.resyncMutex.Unlock()

	handler := RunResync(m.runner, m.userAgent, engine.TriggerScheduled)

	// Waiting slightly less than the resync interval avoids overlapping the
	// next tick. A timed-out cycle keeps running and is aborted by the next
	// resync through RunResync.
	timeout := m.resyncInterval - time.Second
	if timeout < time.Second {
		timeout = time.Second
	}

	select {
	case <-handler.Done():
		logger.Info("Scheduled resync completed")
	case <-time.After(timeout):
		logger.Error("Scheduled resync timed out, will retry on next interval")
	}
}

// runHealthCheck monitors the health of the resync ticker
func (m *ScheduledResyncManager) runHealthCheck() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic in resync health check goroutine: %v", r)
		}
	}()

	healthTicker := time.NewTicker(5 * time.Minute)
	defer healthTicker.Stop()

	for {
		select {
		case <-healthTicker.C:
			m.checkResyncHealth()
		case <-m.stopCh:
			logger.Info("Stopping resync health check")
			return
		}
	}
}

// checkResyncHealth checks if resyncs are happening as expected
func (m *ScheduledResyncManager) checkResyncHealth() {
	m.resyncMutex.RLock()
	timeSinceLastResync := time.Since(m.lastResyncTime)
	m.resyncMutex.RUnlock()

	// Allow 2x the interval as a grace period
	maxAllowedTime := m.resyncInterval * 2
	if timeSinceLastResync > maxAllowedTime {
		logger.Errorf("WARNING: No resync has occurred for %v (expected interval: %v). The ticker may have stopped working!",
			timeSinceLastResync, m.resyncInterval)
	}
}

// IsRunning returns whether the scheduled resync manager is running
func (m *ScheduledResyncManager) IsRunning() bool {
	m.runningMutex.Lock()
	defer m.runningMutex.Unlock()
	return m.isRunning
}
