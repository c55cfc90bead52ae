package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

var ApplicationConfig = &ApplicationConfiguration{}
var KafkaConfig = &KafkaConfiguration{}
var PollingListenerRate uint

// FileNotFoundError distinguishes a missing sources file from a malformed
// one. Callers fall back to flag and env configuration when the file is
// absent.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

// Init registers all configuration flags. Values resolve in order: command
// line flag, environment variable, default. A .env file is loaded first so
// local runs can keep credentials out of the shell history.
func Init() {
	_ = godotenv.Load()

	NewString(&ApplicationConfig.ConfigFilePath, "config", "config.yaml", "Path to the sources and mapping file. Defaults to config.yaml")
	NewString(&ApplicationConfig.StateKey, "state-key", "", "Unique state key per installation. Required")
	NewUInt(&ApplicationConfig.ResyncInterval, "resync-interval", 0, "Full resync interval in minutes. Zero disables the schedule")
	NewString(&ApplicationConfig.PortBaseURL, "port-base-url", "https://api.getport.io", "Port base URL. Defaults to https://api.getport.io")
	NewString(&ApplicationConfig.PortClientId, "port-client-id", "", "Port client id. Required")
	NewString(&ApplicationConfig.PortClientSecret, "port-client-secret", "", "Port client secret. Required")
	NewString(&ApplicationConfig.EventListenerType, "event-listener-type", "POLLING", "Event listener type, one of POLLING, KAFKA, FILE. Defaults to POLLING")
	NewUInt(&ApplicationConfig.LiveEventsPort, "live-events-port", 8000, "HTTP port accepting webhook-style live change events. Zero disables the endpoint")
	NewString(&ApplicationConfig.LoggingLevel, "logging-level", "info", "Logging level, one of debug, info, warn, error. Defaults to info")
	NewBool(&ApplicationConfig.HTTPLogging, "http-logging", true, "Ship logs to Port in addition to stdout. Defaults to true")
	NewBool(&ApplicationConfig.Debug, "debug", false, "Lower the logging level to debug. Defaults to false")

	NewBool(&ApplicationConfig.OverwriteConfigurationOnRestart, "overwrite-configuration-on-restart", false, "Overwrite the remote integration mapping with the local file on startup. Defaults to false")
	NewBool(&ApplicationConfig.UpdateEntityOnlyOnDiff, "update-entity-only-on-diff", false, "Skip upserts for entities that did not change since the last sync. Defaults to false")
	NewBool(&ApplicationConfig.DeleteDependents, "delete-dependents", false, "Delete dependent entities when deleting a stale entity. Defaults to false")
	NewBool(&ApplicationConfig.CreateMissingRelatedEntities, "create-missing-related-entities", false, "Create barebones related entities for unresolved relations. Defaults to false")
	NewInt(&ApplicationConfig.BulkSyncMaxEntitiesPerBatch, "bulk-sync-max-entities-per-batch", 20, "Upper bound of entities per bulk upsert request. Defaults to 20")
	NewInt(&ApplicationConfig.BulkSyncMaxPayloadBytes, "bulk-sync-max-payload-bytes", 1024*1024, "Upper bound of bulk upsert payload size in bytes. Defaults to 1MB")

	NewUInt(&PollingListenerRate, "polling-listener-rate", 60, "Polling interval in seconds for the POLLING event listener. Defaults to 60")

	NewString(&KafkaConfig.Brokers, "event-listener-brokers", "localhost:9092", "Kafka event listener brokers")
	NewString(&KafkaConfig.SecurityProtocol, "event-listener-security-protocol", "plaintext", "Kafka event listener security protocol")
	NewString(&KafkaConfig.AuthenticationMechanism, "event-listener-authentication-mechanism", "none", "Kafka event listener authentication mechanism")
	NewBool(&KafkaConfig.KafkaSecurityEnabled, "event-listener-security-enabled", true, "Kafka event listener security enabled")
}

// GetConfigFile reads the local sources file. Missing files return a
// FileNotFoundError; unreadable or malformed files return the underlying
// error.
func GetConfigFile(filepath string, resyncInterval uint, stateKey string, eventListenerType string) (*port.Config, error) {
	c := &port.Config{
		ResyncInterval:    resyncInterval,
		StateKey:          stateKey,
		EventListenerType: eventListenerType,
	}

	raw, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: filepath}
		}
		return nil, err
	}

	if err = yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}

	return c, nil
}
