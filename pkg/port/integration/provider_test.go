package integration_test

import (
	"context"
	"testing"

	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/integration"
	testUtils "github.com/port-labs/port-sync-engine/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderReturnsRemoteResources(t *testing.T) {
	fake := testUtils.NewFakePortServer(t)
	portClient := newTestClient(fake.URL)

	resources := []port.Resource{{Kind: "repo"}, {Kind: "issue"}}
	fake.SetIntegration(&port.Integration{
		InstallationId: "test-state-key",
		Config:         &port.AppConfig{Resources: resources},
	})

	provider := integration.NewProvider(portClient, "test-state-key")
	got, err := provider.GetResourceConfigs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resources, got)
}

func TestProviderErrorsWhenConfigMissing(t *testing.T) {
	fake := testUtils.NewFakePortServer(t)
	portClient := newTestClient(fake.URL)

	fake.SetIntegration(&port.Integration{InstallationId: "test-state-key"})

	provider := integration.NewProvider(portClient, "test-state-key")
	_, err := provider.GetResourceConfigs(context.Background())
	require.Error(t, err)
}

func TestProviderErrorsWhenIntegrationMissing(t *testing.T) {
	fake := testUtils.NewFakePortServer(t)
	portClient := newTestClient(fake.URL)

	provider := integration.NewProvider(portClient, "absent-state-key")
	_, err := provider.GetResourceConfigs(context.Background())
	require.Error(t, err)
}
