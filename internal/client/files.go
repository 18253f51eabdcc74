package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// FilesClient implements directus.FilesClient.
type FilesClient struct {
	httpClient *http.Client
}

// NewFilesClient creates a new files client.
func NewFilesClient(httpClient *http.Client) *FilesClient {
	return &FilesClient{
		httpClient: httpClient,
	}
}

// List implements directus.FilesClient.List.
func (c *FilesClient) List(ctx context.Context, query *directus.Query) ([]directus.File, error) {
	params, err := listParams(query)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/files", params)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	var files []directus.File

	err = handleResponse(resp, &files)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	return files, nil
}

// Get implements directus.FilesClient.Get.
func (c *FilesClient) Get(ctx context.Context, id string, query *directus.Query) (*directus.File, error) {
	params, err := query.Params()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, "/files/"+url.PathEscape(id), params)
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}

	var file directus.File

	err = handleResponse(resp, &file)
	if err != nil {
		return nil, fmt.Errorf("getting file: %w", err)
	}

	return &file, nil
}

// Create implements directus.FilesClient.Create by importing the file from its URL.
func (c *FilesClient) Create(ctx context.Context, request *directus.FileCreateRequest) (*directus.File, error) {
	resp, err := c.httpClient.Post(ctx, "/files/import", request)
	if err != nil {
		return nil, fmt.Errorf("importing file: %w", err)
	}

	var file directus.File

	err = handleResponse(resp, &file)
	if err != nil {
		return nil, fmt.Errorf("importing file: %w", err)
	}

	return &file, nil
}

// Update implements directus.FilesClient.Update.
func (c *FilesClient) Update(ctx context.Context, id string, request *directus.FileUpdateRequest) (*directus.File, error) {
	resp, err := c.httpClient.Patch(ctx, "/files/"+url.PathEscape(id), request)
	if err != nil {
		return nil, fmt.Errorf("updating file: %w", err)
	}

	var file directus.File

	err = handleResponse(resp, &file)
	if err != nil {
		return nil, fmt.Errorf("updating file: %w", err)
	}

	return &file, nil
}

// Delete implements directus.FilesClient.Delete.
func (c *FilesClient) Delete(ctx context.Context, id string) error {
	resp, err := c.httpClient.Delete(ctx, "/files/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	err = handleResponse(resp, nil)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	return nil
}
