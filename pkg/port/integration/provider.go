package integration

import (
	"context"
	"errors"

	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
)

// Provider reads the resource mapping from the remote integration at the
// start of every cycle, so mapping edits made in Port take effect on the
// next sync without a restart.
type Provider struct {
	portClient *cli.PortClient
	stateKey   string
}

func NewProvider(portClient *cli.PortClient, stateKey string) *Provider {
	return &Provider{portClient: portClient, stateKey: stateKey}
}

func (p *Provider) GetResourceConfigs(ctx context.Context) ([]port.Resource, error) {
	i, err := GetIntegration(p.portClient, p.stateKey)
	if err != nil {
		return nil, err
	}
	if i.Config == nil {
		return nil, errors.New("integration config is nil")
	}
	return i.Config.Resources, nil
}
