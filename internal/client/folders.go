package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// FoldersClient implements directus.FoldersClient.
type FoldersClient struct {
	httpClient *http.Client
}

// NewFoldersClient creates a new folders client.
func NewFoldersClient(httpClient *http.Client) *FoldersClient {
	return &FoldersClient{
		httpClient: httpClient,
	}
}

// List implements directus.FoldersClient.List.
func (c *FoldersClient) List(ctx context.Context, query *directus.Query) ([]directus.Folder, error) {
	params, err := listParams(query)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/folders", params)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	var folders []directus.Folder

	err = handleResponse(resp, &folders)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	return folders, nil
}

// Get implements directus.FoldersClient.Get.
func (c *FoldersClient) Get(ctx context.Context, id string, query *directus.Query) (*directus.Folder, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/folders/"+url.PathEscape(id), params)
	if err != nil {
		return nil, fmt.Errorf("getting folder: %w", err)
	}

	var folder directus.Folder

	err = handleResponse(resp, &folder)
	if err != nil {
		return nil, fmt.Errorf("getting folder: %w", err)
	}

	return &folder, nil
}

// Create implements directus.FoldersClient.Create.
func (c *FoldersClient) Create(ctx context.Context, request *directus.FolderRequest) (*directus.Folder, error) {
	resp, err := c.httpClient.Post(ctx, "/folders", request)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	var folder directus.Folder

	err = handleResponse(resp, &folder)
	if err != nil {
		return nil, fmt.Errorf("creating folder: %w", err)
	}

	return &folder, nil
}

// Update implements directus.FoldersClient.Update.
func (c *FoldersClient) Update(ctx context.Context, id string, request *directus.FolderRequest) (*directus.Folder, error) {
	resp, err := c.httpClient.Patch(ctx, "/folders/"+url.PathEscape(id), request)
	if err != nil {
		return nil, fmt.Errorf("updating folder: %w", err)
	}

	var folder directus.Folder

	err = handleResponse(resp, &folder)
	if err != nil {
		return nil, fmt.Errorf("updating folder: %w", err)
	}

	return &folder, nil
}

// Delete implements directus.FoldersClient.Delete.
func (c *FoldersClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.Delete(ctx, "/folders/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("deleting folder: %w", err)
	}

	err = handleResponse(resp, nil)
	if err != nil {
		return fmt.Errorf("deleting folder: %w", err)
	}

	return nil
}
