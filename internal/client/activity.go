package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// ActivityClient implements directus.ActivityClient.
type ActivityClient struct {
	httpClient *http.Client
}

// NewActivityClient creates a new activity client.
func NewActivityClient(httpClient *http.Client) *ActivityClient {
	return &ActivityClient{
		httpClient: httpClient,
	}
}

// List implements directus.ActivityClient.List.
func (c *ActivityClient) List(ctx context.Context, query *directus.Query) ([]directus.Activity, error) {
	params, err := listParams(query)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/activity", params)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}

	var activity []directus.Activity

	err = handleResponse(resp, &activity)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}

	return activity, nil
}

// Get implements directus.ActivityClient.Get.
func (c *ActivityClient) Get(ctx context.Context, id int, query *directus.Query) (*directus.Activity, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/activity/"+strconv.Itoa(id), params)
	if err != nil {
		return nil, fmt.Errorf("getting activity %d: %w", id, err)
	}

	var activity directus.Activity

	err = handleResponse(resp, &activity)
	if err != nil {
		return nil, fmt.Errorf("getting activity %d: %w", id, err)
	}

	return &activity, nil
}
