package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// ItemsClient implements directus.ItemsClient for one collection.
type ItemsClient struct {
	httpClient *http.Client
	collection string
}

// NewItemsClient creates a new items client.
func NewItemsClient(httpClient *http.Client, collection string) *ItemsClient {
	return &ItemsClient{
		httpClient: httpClient,
		collection: collection,
	}
}

func (c *ItemsClient) basePath() string {
	return "/items/" + url.PathEscape(c.collection)
}

func (c *ItemsClient) itemPath(id string) string {
	return c.basePath() + "/" + url.PathEscape(id)
}

// List implements directus.ItemsClient.List.
func (c *ItemsClient) List(ctx context.Context, query *directus.Query) ([]directus.Item, error) {
	params, err := listParams(query)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, c.basePath(), params)
	if err != nil {
		return nil, fmt.Errorf("listing items of %s: %w", c.collection, err)
	}

	var items []directus.Item

	err = handleResponse(resp, &items)
	if err != nil {
		return nil, fmt.Errorf("listing items of %s: %w", c.collection, err)
	}

	return items, nil
}

// Get implements directus.ItemsClient.Get.
func (c *ItemsClient) Get(ctx context.Context, id string, query *directus.Query) (directus.Item, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, c.itemPath(id), params)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}

	var item directus.Item

	err = handleResponse(resp, &item)
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}

	return item, nil
}

// Create implements directus.ItemsClient.Create.
func (c *ItemsClient) Create(ctx context.Context, item directus.Item) (directus.Item, error) {
	resp, err := c.httpClient.Post(ctx, c.basePath(), item)
	if err != nil {
		return nil, fmt.Errorf("creating item in %s: %w", c.collection, err)
	}

	var created directus.Item

	err = handleResponse(resp, &created)
	if err != nil {
		return nil, fmt.Errorf("creating item in %s: %w", c.collection, err)
	}

	return created, nil
}

// Update implements directus.ItemsClient.Update.
func (c *ItemsClient) Update(ctx context.Context, id string, item directus.Item) (directus.Item, error) {
	resp, err := c.httpClient.Patch(ctx, c.itemPath(id), item)
	if err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}

	var updated directus.Item

	err = handleResponse(resp, &updated)
	if err != nil {
		return nil, fmt.Errorf("updating item %s: %w", id, err)
	}

	return updated, nil
}

// Delete implements directus.ItemsClient.Delete.
func (c *ItemsClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.Delete(ctx, c.itemPath(id))
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}

	err = handleResponse(resp, nil)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}

	return nil
}

// listParams applies the default limit of -1 so list calls return every record.
func listParams(query *directus.Query) (map[string]interface{}, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	if _, ok := params["limit"]; !ok {
		params["limit"] = constants.DefaultLimit
	}

	return params, nil
}
