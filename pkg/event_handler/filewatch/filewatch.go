package filewatch

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/port-labs/port-sync-engine/pkg/logger"
)

type Handler struct {
	path string
}

func NewHandler(resourceFilePath string) *Handler {
	return &Handler{path: resourceFilePath}
}

// Run watches the resource file and calls resync whenever its content
// changes. The watch is attached to the containing directory because
// editors replace files on save, which would silently drop a watch on the
// file itself. It blocks until the process receives SIGINT or SIGTERM.
func (h *Handler) Run(resync func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating file watcher: %v", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("error watching '%s': %v", dir, err)
	}

	lastContent, err := os.ReadFile(h.path)
	if err != nil {
		logger.Errorf("Error reading the initial resource file state: %s", err.Error())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Infof("File event listener started, watching %s", h.path)
	for {
		select {
		case sig := <-sigChan:
			logger.Infof("Received signal %v: terminating\n", sig)
			// Flush any pending logs before termination
			logger.Shutdown()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(h.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			content, err := os.ReadFile(h.path)
			if err != nil {
				logger.Errorf("error reading resource file: %s", err.Error())
				continue
			}
			if bytes.Equal(lastContent, content) {
				continue
			}

			logger.Infof("Changes detected in %s. Resyncing...", h.path)
			lastContent = content
			resync()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Errorf("File watcher error: %s", watchErr.Error())
		}
	}
}
