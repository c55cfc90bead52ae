package cli

import (
	"fmt"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

func (c *PortClient) GetOrgId() (string, error) {
	pb := &port.ResponseBody{}
	resp, err := c.Client.R().
		SetResult(&pb).
		Get("v1/organization")
	if err != nil {
		return "", err
	}
	if !pb.OK {
		return "", fmt.Errorf("failed to get orgId, got: %s", resp.Body())
	}
	return pb.OrgDetails.OrgId, nil
}
