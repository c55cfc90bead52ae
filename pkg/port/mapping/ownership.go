package mapping

import (
	"context"
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/port"
	"github.com/port-labs/port-sync-engine/pkg/port/cli"
)

// CheckIfOwnEntity reports whether the entity at Port was written by this
// installation. Live event deletes must not touch entities owned by another
// reporter or another state key.
func CheckIfOwnEntity(ctx context.Context, entity port.Entity, portClient *cli.PortClient, stateKey string) (*bool, error) {
	portEntities, err := portClient.SearchEntities(ctx, port.SearchBody{
		Rules: []port.Rule{
			{
				Property: "$datasource",
				Operator: "contains",
				Value:    "port-sync-engine",
			},
			{
				Property: "$identifier",
				Operator: "=",
				Value:    entity.Identifier,
			},
			{
				Property: "$datasource",
				Operator: "contains",
				Value:    fmt.Sprintf("(statekey/%s)", stateKey),
			},
			{
				Property: "$blueprint",
				Operator: "=",
				Value:    entity.Blueprint,
			},
		},
		Combinator: "and",
	})
	if err != nil {
		return nil, err
	}

	result := len(portEntities) > 0
	return &result, nil
}
