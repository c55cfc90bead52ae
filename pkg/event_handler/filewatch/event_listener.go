package filewatch

import (
	"github.com/port-labs/port-sync-engine/pkg/logger"
)

type EventListener struct {
	path    string
	handler *Handler
}

func NewEventListener(resourceFilePath string) *EventListener {
	return &EventListener{
		path:    resourceFilePath,
		handler: NewHandler(resourceFilePath),
	}
}

func (l *EventListener) Run(resync func()) error {
	logger.Infof("Starting file event listener")
	logger.Infof("Watching resource file %s for changes", l.path)
	return l.handler.Run(resync)
}
