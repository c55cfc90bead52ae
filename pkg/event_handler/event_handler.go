package event_handler

import (
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/engine"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
)

// IListener delivers resync requests from an external trigger source. Run
// blocks for the lifetime of the listener and invokes resync once per
// request.
type IListener interface {
	Run(resync func()) error
}

// Start runs one sync immediately and then another for every resync request
// the listener delivers. Cycle scheduling, including aborting a previous
// in-flight cycle, belongs to the resync callback.
func Start(eventListener IListener, resync func(trigger string) error) error {
	err := resync(engine.TriggerOnStart)
	if err != nil {
		logger.Errorw("error resyncing", "error", err.Error())
		utilruntime.HandleError(fmt.Errorf("error resyncing: %s", err.Error()))
	}

	return eventListener.Run(func() {
		logger.Info("Resync request received. Starting a new sync cycle for the updated configuration")

		resyncErr := resync(engine.TriggerConfigChange)
		if resyncErr != nil {
			logger.Errorw("error resyncing", "error", resyncErr.Error())
			utilruntime.HandleError(fmt.Errorf("error resyncing: %s", resyncErr.Error()))
		}
	})
}
