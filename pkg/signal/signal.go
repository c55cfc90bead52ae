package signal

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/port-labs/port-sync-engine/pkg/logger"
)

var onlyOneSignalHandler = make(chan struct{})

// SetupSignalHandler returns a channel that is closed on the first SIGINT or
// SIGTERM, letting the caller wind down the running sync cycle. A second
// signal exits the process immediately. Panics if called twice.
func SetupSignalHandler() (stopCh <-chan struct{}) {
	close(onlyOneSignalHandler)

	stop := make(chan struct{})
	shutdownCh := make(chan os.Signal, 2)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdownCh
		logger.Info("Received termination signal, finishing the current sync cycle...")
		close(stop)
		<-shutdownCh
		logger.Info("Received second termination signal, exiting immediately")
		logger.Shutdown()
		os.Exit(1)
	}()

	return stop
}
