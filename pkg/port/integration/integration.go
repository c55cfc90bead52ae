package integration

import (
	"context"
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/logger"
	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
)

func getEventListenerConfig(eventListenerType string) *port.EventListenerSettings {
	if eventListenerType == "KAFKA" {
		return &port.EventListenerSettings{
			Type: eventListenerType,
		}
	}
	return nil
}

func NewIntegration(portClient *cli.PortClient, stateKey string, eventListenerType string, resources []port.Resource, version string) error {
	integration := &port.Integration{
		Title:               stateKey,
		InstallationAppType: "SYNC ENGINE",
		InstallationId:      stateKey,
		Version:             version,
		EventListener:       getEventListenerConfig(eventListenerType),
		Config: &port.AppConfig{
			Resources: resources,
		},
	}
	_, err := portClient.Authenticate(context.Background(), portClient.ClientID, portClient.ClientSecret)
	if err != nil {
		return fmt.Errorf("error authenticating with Port: %v", err)
	}

	_, err = portClient.CreateIntegration(integration)
	if err != nil {
		return fmt.Errorf("error creating Port integration: %v", err)
	}
	return nil
}

func GetIntegration(portClient *cli.PortClient, stateKey string) (*port.Integration, error) {
	_, err := portClient.Authenticate(context.Background(), portClient.ClientID, portClient.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("error authenticating with Port: %v", err)
	}

	apiIntegration, err := portClient.GetIntegration(stateKey)
	if err != nil {
		return nil, fmt.Errorf("error getting Port integration: %v", err)
	}

	return apiIntegration, nil
}

func DeleteIntegration(portClient *cli.PortClient, stateKey string) error {
	_, err := portClient.Authenticate(context.Background(), portClient.ClientID, portClient.ClientSecret)
	if err != nil {
		return fmt.Errorf("error authenticating with Port: %v", err)
	}

	err = portClient.DeleteIntegration(stateKey)
	if err != nil {
		return fmt.Errorf("error deleting Port integration: %v", err)
	}
	return nil
}

func UpdateIntegrationConfig(portClient *cli.PortClient, stateKey string, config *port.AppConfig) error {
	_, err := portClient.Authenticate(context.Background(), portClient.ClientID, portClient.ClientSecret)
	if err != nil {
		return fmt.Errorf("error authenticating with Port: %v", err)
	}

	err = portClient.PatchIntegration(stateKey, &port.Integration{Config: config})
	if err != nil {
		return fmt.Errorf("error updating Port integration config: %v", err)
	}
	return nil
}

// InitIntegration makes sure the installation exists remotely before the
// first sync. A missing integration is created with the local resources; an
// existing one keeps its remote mapping unless overwrite is requested.
func InitIntegration(portClient *cli.PortClient, applicationConfig *port.Config, version string, overwriteConfigurationOnRestart bool) error {
	logger.Infof("Initializing integration with state key %s", applicationConfig.StateKey)

	existingIntegration, err := GetIntegration(portClient, applicationConfig.StateKey)
	if err != nil {
		logger.Infof("Could not get integration with state key %s, creating it. Error: %s", applicationConfig.StateKey, err.Error())
		return NewIntegration(portClient, applicationConfig.StateKey, applicationConfig.EventListenerType, applicationConfig.Resources, version)
	}

	logger.Infof("Integration with state key %s already exists, patching it", applicationConfig.StateKey)
	integrationPatch := &port.Integration{
		EventListener: getEventListenerConfig(applicationConfig.EventListenerType),
		Version:       version,
	}

	if existingIntegration.Config == nil || overwriteConfigurationOnRestart {
		integrationPatch.Config = &port.AppConfig{
			Resources: applicationConfig.Resources,
		}
	}

	return portClient.PatchIntegration(applicationConfig.StateKey, integrationPatch)
}
