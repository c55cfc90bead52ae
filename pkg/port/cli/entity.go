package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/port-labs/port-sync-engine/pkg/port"
)

func (c *PortClient) SearchEntities(ctx context.Context, body port.SearchBody) ([]port.Entity, error) {
	pb := &port.ResponseBody{}
	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader("Accept", "application/json").
		SetQueryParam("exclude_calculated_properties", "true").
		SetQueryParamsFromValues(url.Values{
			"include": []string{"blueprint", "identifier"},
		}).
		SetResult(&pb).
		Post("/v1/entities/search")
	if err != nil {
		return nil, err
	}
	if !pb.OK {
		return nil, fmt.Errorf("failed to search entities, got: %s", resp.Body())
	}
	return pb.Entities, nil
}

// SearchEntitiesByDatasource returns the entities this installation owns.
// Ownership is tracked by the datasource stamp the API records on writes,
// which embeds the reporter and its state key.
func (c *PortClient) SearchEntitiesByDatasource(ctx context.Context, datasourcePrefix, datasourceSuffix string) ([]port.Entity, error) {
	pb := &port.ResponseBody{}
	body := port.DatasourceSearchBody{
		DatasourcePrefix: datasourcePrefix,
		DatasourceSuffix: datasourceSuffix,
	}
	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader("Accept", "application/json").
		SetQueryParam("exclude_calculated_properties", "true").
		SetQueryParamsFromValues(url.Values{
			"include": []string{"blueprint", "identifier"},
		}).
		SetResult(&pb).
		Post("/v1/blueprints/entities/datasource-entities")
	if err != nil {
		return nil, err
	}
	if !pb.OK {
		return nil, fmt.Errorf("failed to search entities by datasource, got: %s", resp.Body())
	}
	return pb.Entities, nil
}

func (c *PortClient) ReadEntity(ctx context.Context, id string, blueprint string) (*port.Entity, error) {
	resp, err := c.Client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("exclude_calculated_properties", "true").
		SetPathParam("blueprint", blueprint).
		SetPathParam("identifier", id).
		Get("v1/blueprints/{blueprint}/entities/{identifier}")
	if err != nil {
		return nil, err
	}
	var pb port.ResponseBody
	err = json.Unmarshal(resp.Body(), &pb)
	if err != nil {
		return nil, err
	}
	if !pb.OK {
		return nil, fmt.Errorf("failed to read entity, got: %s", resp.Body())
	}
	return &pb.Entity, nil
}

func (c *PortClient) CreateEntity(ctx context.Context, e *port.Entity, runID string, createMissingRelatedEntities bool) (*port.Entity, error) {
	pb := &port.ResponseBody{}
	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(e).
		SetPathParam("blueprint", e.Blueprint).
		SetQueryParam("upsert", "true").
		SetQueryParam("merge", "true").
		SetQueryParam("run_id", runID).
		SetQueryParam("create_missing_related_entities", strconv.FormatBool(createMissingRelatedEntities)).
		SetResult(&pb).
		Post("v1/blueprints/{blueprint}/entities")
	if err != nil {
		return nil, err
	}
	if !pb.OK {
		return nil, fmt.Errorf("failed to create entity, got: %s", resp.Body())
	}
	return &pb.Entity, nil
}

func (c *PortClient) DeleteEntity(ctx context.Context, id string, blueprint string, deleteDependents bool) error {
	pb := &port.ResponseBody{}
	resp, err := c.Client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("blueprint", blueprint).
		SetPathParam("identifier", id).
		SetQueryParam("delete_dependents", strconv.FormatBool(deleteDependents)).
		SetResult(pb).
		Delete("v1/blueprints/{blueprint}/entities/{identifier}")
	if err != nil {
		return err
	}
	if !pb.OK {
		return fmt.Errorf("failed to delete entity, got: %s", resp.Body())
	}
	return nil
}

// BulkUpsertEntities upserts up to 20 entities of one blueprint in a single
// request. A 207 response carries per-entity failures in the Errors field
// rather than failing the call.
func (c *PortClient) BulkUpsertEntities(ctx context.Context, blueprint string, entities []port.Entity, runID string, createMissingRelatedEntities bool) (*port.BulkUpsertResponse, error) {
	if len(entities) == 0 {
		return &port.BulkUpsertResponse{OK: true, Entities: []port.BulkEntityResult{}, Errors: []port.BulkEntityError{}}, nil
	}
	if len(entities) > 20 {
		return nil, fmt.Errorf("bulk upsert supports maximum 20 entities per request, got %d", len(entities))
	}

	requestBody := port.BulkUpsertRequest{
		Entities: entities,
	}

	pb := &port.BulkUpsertResponse{}
	resp, err := c.Client.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetPathParam("blueprint_identifier", blueprint).
		SetQueryParam("upsert", "true").
		SetQueryParam("merge", "true").
		SetQueryParam("run_id", runID).
		SetQueryParam("create_missing_related_entities", strconv.FormatBool(createMissingRelatedEntities)).
		SetResult(&pb).
		Post("v1/blueprints/{blueprint_identifier}/entities/bulk")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 207 {
		return nil, fmt.Errorf("failed to bulk upsert entities, got status %d: %s", resp.StatusCode(), resp.Body())
	}
	return pb, nil
}
