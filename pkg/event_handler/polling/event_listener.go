package polling

import (
	"github.com/port-labs/port-sync-engine/pkg/config"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
)

type EventListener struct {
	stateKey string
	handler  *Handler
}

func NewEventListener(stateKey string, portClient *cli.PortClient) *EventListener {
	return &EventListener{
		stateKey: stateKey,
		handler:  NewPollingHandler(config.PollingListenerRate, stateKey, portClient, nil),
	}
}

func (l *EventListener) Run(resync func()) error {
	logger.Infof("Starting polling event listener")
	logger.Infof("Polling rate set to %d seconds", config.PollingListenerRate)
	l.handler.Run(resync)
	return nil
}
