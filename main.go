package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/port-labs/port-sync-engine/pkg/config"
	"github.com/port-labs/port-sync-engine/pkg/engine"
	"github.com/port-labs/port-sync-engine/pkg/engine/worker"
	"github.com/port-labs/port-sync-engine/pkg/event_handler"
	"github.com/port-labs/port-sync-engine/pkg/handlers"
	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/metrics"
	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/applier"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
	"github.com/port-labs/port-sync-engine/pkg/port/integration"
	"github.com/port-labs/port-sync-engine/pkg/port/mapping"
	"github.com/port-labs/port-sync-engine/pkg/signal"
	"golang.org/x/exp/slices"
	"k8s.io/klog/v2"
)

// version is stamped by the release workflow through ldflags.
var version = "v0.1.0"

func initLogger() error {
	if config.ApplicationConfig.HTTPLogging {
		return logger.InitWithHTTP(config.ApplicationConfig.LoggingLevel, config.ApplicationConfig.Debug)
	}
	return logger.Init(config.ApplicationConfig.LoggingLevel, config.ApplicationConfig.Debug)
}

func getApplicationConfig() (*port.Config, error) {
	appConfig, err := config.GetConfigFile(config.ApplicationConfig.ConfigFilePath, config.ApplicationConfig.ResyncInterval,
		config.ApplicationConfig.StateKey, config.ApplicationConfig.EventListenerType)
	if err != nil {
		var fileNotFoundError *config.FileNotFoundError
		if errors.As(err, &fileNotFoundError) {
			logger.Infof("No resource file found at %s, starting from the remote integration configuration", config.ApplicationConfig.ConfigFilePath)
			return &port.Config{
				StateKey:          config.ApplicationConfig.StateKey,
				EventListenerType: config.ApplicationConfig.EventListenerType,
				ResyncInterval:    config.ApplicationConfig.ResyncInterval,
			}, nil
		}
		return nil, err
	}

	return appConfig, nil
}

func startHTTPLogShipping(portClient *cli.PortClient, stateKey string) {
	if !config.ApplicationConfig.HTTPLogging {
		return
	}
	logger.SetHttpWriterParametersAndStart(
		fmt.Sprintf("%s/v1/integration/%s/logs", config.ApplicationConfig.PortBaseURL, stateKey),
		func() (string, int, error) {
			token, err := portClient.Authenticate(context.Background(), portClient.ClientID, portClient.ClientSecret)
			return token, 0, err
		},
		logger.LoggerIntegrationData{
			IntegrationVersion:    version,
			IntegrationIdentifier: stateKey,
		},
	)
}

func newEngine(portClient *cli.PortClient, stateKey string) *engine.Engine {
	catalogApplier := applier.New(portClient, stateKey,
		applier.WithDeleteDependents(config.ApplicationConfig.DeleteDependents),
		applier.WithCreateMissingRelatedEntities(config.ApplicationConfig.CreateMissingRelatedEntities),
		applier.WithUpdateEntityOnlyOnDiff(config.ApplicationConfig.UpdateEntityOnlyOnDiff),
		applier.WithMaxEntitiesPerBatch(config.ApplicationConfig.BulkSyncMaxEntitiesPerBatch),
	)

	return engine.New(catalogApplier, mapping.NewMapper(), integration.NewProvider(portClient, stateKey))
}

// startLiveEventsServer accepts webhook-style change deliveries and feeds
// them to the live event worker. One record per request.
func startLiveEventsServer(liveEvents *worker.Worker, listenPort uint) {
	if listenPort == 0 {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var event struct {
			Kind   string         `json:"kind"`
			Action string         `json:"action"`
			Record port.RawRecord `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, fmt.Sprintf("invalid event payload: %v", err), http.StatusBadRequest)
			return
		}
		if event.Kind == "" || event.Record == nil {
			http.Error(w, "event kind and record are required", http.StatusBadRequest)
			return
		}

		action := worker.ActionType(event.Action)
		if !slices.Contains([]worker.ActionType{worker.CreateAction, worker.UpdateAction, worker.DeleteAction}, action) {
			http.Error(w, fmt.Sprintf("unknown event action '%s'", event.Action), http.StatusBadRequest)
			return
		}

		liveEvents.Enqueue(worker.Event{Kind: event.Kind, Action: action, Record: event.Record})
		w.WriteHeader(http.StatusAccepted)
	})

	go func() {
		logger.Infof("Starting live events server on port %d", listenPort)
		if err := http.ListenAndServe(fmt.Sprintf(":%d", listenPort), mux); err != nil {
			logger.Errorf("Live events server stopped: %s", err.Error())
		}
	}()
}

func main() {
	klog.InitFlags(nil)

	if err := initLogger(); err != nil {
		klog.Fatalf("Error initializing logger: %s", err.Error())
	}

	applicationConfig, err := getApplicationConfig()
	if err != nil {
		klog.Fatalf("Error reading resource file: %s", err.Error())
	}

	portClient := cli.New(config.ApplicationConfig,
		cli.WithDeleteDependents(config.ApplicationConfig.DeleteDependents),
		cli.WithCreateMissingRelatedEntities(config.ApplicationConfig.CreateMissingRelatedEntities),
	)

	if err := integration.InitIntegration(portClient, applicationConfig, version, config.ApplicationConfig.OverwriteConfigurationOnRestart); err != nil {
		klog.Fatalf("Error initializing Port integration: %s", err.Error())
	}

	startHTTPLogShipping(portClient, applicationConfig.StateKey)
	metrics.StartMetricsServer(logger.GetLogger())

	stopCh := signal.SetupSignalHandler()

	eng := newEngine(portClient, applicationConfig.StateKey)
	if eng.Registry().Len() == 0 {
		logger.Warningf("No source listeners are registered. Full sync cycles will observe every configured kind as empty; only live events will produce entities")
	}

	liveEvents := worker.New(eng, port.ExporterUserAgent, func(ctx context.Context, entity *port.Entity) (bool, error) {
		owned, err := mapping.CheckIfOwnEntity(ctx, *entity, portClient, applicationConfig.StateKey)
		if err != nil {
			return false, err
		}
		return *owned, nil
	})
	liveEvents.Run(1, stopCh)
	startLiveEventsServer(liveEvents, config.ApplicationConfig.LiveEventsPort)

	if applicationConfig.ResyncInterval > 0 {
		scheduledResync := handlers.NewScheduledResyncManager(eng, port.ExporterUserAgent, applicationConfig.ResyncInterval)
		scheduledResync.Start()
		defer scheduledResync.Stop()
	}

	eventListener, err := event_handler.CreateEventListener(applicationConfig.StateKey, applicationConfig.EventListenerType, portClient)
	if err != nil {
		klog.Fatalf("Error creating event listener: %s", err.Error())
	}

	klog.Info("Starting sync engine")
	if err := event_handler.Start(eventListener, func(trigger string) error {
		handlers.RunResync(eng, port.ExporterUserAgent, trigger)
		return nil
	}); err != nil {
		klog.Fatalf("Error starting event listener: %s", err.Error())
	}

	handlers.StopRunningHandler()
	liveEvents.Shutdown()
	_ = logger.Shutdown()
}

func init() {
	config.Init()
	flag.Parse()
}
