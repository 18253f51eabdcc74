package directus_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errItemNotFound = errors.New("item not found")

// MockClient implements directus.Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Items(collection string) directus.ItemsClient {
	args := m.Called(collection)

	return args.Get(0).(directus.ItemsClient)
}

func (m *MockClient) Files() directus.FilesClient {
	args := m.Called()

	return args.Get(0).(directus.FilesClient)
}

func (m *MockClient) Folders() directus.FoldersClient {
	args := m.Called()

	return args.Get(0).(directus.FoldersClient)
}

func (m *MockClient) Activity() directus.ActivityClient {
	args := m.Called()

	return args.Get(0).(directus.ActivityClient)
}

func (m *MockClient) GetToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

// MockItemsClient implements directus.ItemsClient for testing.
type MockItemsClient struct {
	mock.Mock
}

func (m *MockItemsClient) List(ctx context.Context, query *directus.Query) ([]directus.Item, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]directus.Item), args.Error(1)
}

func (m *MockItemsClient) Get(ctx context.Context, id string, query *directus.Query) (directus.Item, error) {
	args := m.Called(ctx, id, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(directus.Item), args.Error(1)
}

func (m *MockItemsClient) Create(ctx context.Context, item directus.Item) (directus.Item, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(directus.Item), args.Error(1)
}

func (m *MockItemsClient) Update(ctx context.Context, id string, item directus.Item) (directus.Item, error) {
	args := m.Called(ctx, id, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(directus.Item), args.Error(1)
}

func (m *MockItemsClient) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockFoldersClient implements directus.FoldersClient for testing.
type MockFoldersClient struct {
	mock.Mock
}

func (m *MockFoldersClient) List(ctx context.Context, query *directus.Query) ([]directus.Folder, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]directus.Folder), args.Error(1)
}

func (m *MockFoldersClient) Get(ctx context.Context, id string, query *directus.Query) (*directus.Folder, error) {
	args := m.Called(ctx, id, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*directus.Folder), args.Error(1)
}

func (m *MockFoldersClient) Create(ctx context.Context, folder *directus.FolderRequest) (*directus.Folder, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*directus.Folder), args.Error(1)
}

func (m *MockFoldersClient) Update(ctx context.Context, id string, folder *directus.FolderRequest) (*directus.Folder, error) {
	args := m.Called(ctx, id, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*directus.Folder), args.Error(1)
}

func (m *MockFoldersClient) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockItems := &MockItemsClient{}
	mockClient.On("Items", "articles").Return(mockItems)

	mockItems.On("Get", mock.Anything, "1", (*directus.Query)(nil)).Return(directus.Item{"id": "1"}, nil)
	mockItems.On("Get", mock.Anything, "2", (*directus.Query)(nil)).Return(directus.Item{"id": "2"}, nil)

	executor := directus.NewBatchExecutor(mockClient, 2)

	operations := directus.NewBatchBuilder().
		AddGetItem("op1", "articles", "1", nil).
		AddGetItem("op2", "articles", "2", nil).
		Build()

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for index, result := range results {
		assert.Equal(t, operations[index].ID, result.ID)
		assert.True(t, result.Success)
		assert.NoError(t, result.Error)
		assert.Equal(t, operations[index].Target, result.Data.(directus.Item).ID())
	}

	mockClient.AssertExpectations(t)
	mockItems.AssertExpectations(t)
}

func TestBatchExecutor_FailureDoesNotStopSiblings(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockItems := &MockItemsClient{}
	mockClient.On("Items", "articles").Return(mockItems)

	mockItems.On("Delete", mock.Anything, "1").Return(errItemNotFound)
	mockItems.On("Delete", mock.Anything, "2").Return(nil)
	mockItems.On("Delete", mock.Anything, "3").Return(nil)

	executor := directus.NewBatchExecutor(mockClient, 1)

	operations := directus.NewBatchBuilder().
		AddDeleteItem("op1", "articles", "1").
		AddDeleteItem("op2", "articles", "2").
		AddDeleteItem("op3", "articles", "3").
		Build()

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Success)
	require.ErrorIs(t, results[0].Error, errItemNotFound)
	assert.Nil(t, results[0].Data)
	assert.True(t, results[1].Success)
	assert.True(t, results[2].Success)

	mockItems.AssertExpectations(t)
}

func TestBatchExecutor_WithCallback(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockFolders := &MockFoldersClient{}
	mockClient.On("Folders").Return(mockFolders)

	request := &directus.FolderRequest{Name: "Images"}
	mockFolders.On("Create", mock.Anything, request).Return(&directus.Folder{ID: "f1", Name: "Images"}, nil)

	var calls atomic.Int32

	operation := directus.BatchOperation{
		ID:       "op1",
		Type:     directus.OperationCreate,
		Resource: directus.ResourceFolders,
		Data:     request,
		Callback: func(result *directus.BatchResult) {
			calls.Add(1)
			assert.True(t, result.Success)
			assert.Equal(t, "op1", result.ID)
		},
	}

	_, err := directus.NewBatchExecutor(mockClient, 1).Execute(context.Background(), []directus.BatchOperation{operation})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	mockFolders.AssertExpectations(t)
}

func TestBatchExecutor_InvalidOperations(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockClient.On("Folders").Return(&MockFoldersClient{})
	mockClient.On("Items", "articles").Return(&MockItemsClient{})

	operations := []directus.BatchOperation{
		{ID: "resource", Type: directus.OperationGet, Resource: "roles", Target: "1"},
		{ID: "type", Type: "archive", Resource: directus.ResourceFolders, Target: "1"},
		{ID: "collection", Type: directus.OperationGet, Resource: directus.ResourceItems, Target: "1"},
		{ID: "data", Type: directus.OperationCreate, Resource: directus.ResourceFolders, Data: "not a request"},
		{ID: "item data", Type: directus.OperationCreate, Resource: directus.ResourceItems, Collection: "articles", Data: 42},
	}

	results, err := directus.NewBatchExecutor(mockClient, 0).Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, len(operations))

	assert.ErrorIs(t, results[0].Error, directus.ErrUnsupportedResourceType)
	assert.ErrorIs(t, results[1].Error, directus.ErrUnsupportedOperationType)
	assert.ErrorIs(t, results[2].Error, directus.ErrMissingCollection)
	assert.ErrorIs(t, results[3].Error, directus.ErrInvalidBatchData)
	assert.ErrorIs(t, results[4].Error, directus.ErrInvalidBatchData)

	for _, result := range results {
		assert.False(t, result.Success)
	}
}

func TestBatchBuilder(t *testing.T) {
	t.Parallel()

	title := "Renamed"

	operations := directus.NewBatchBuilder().
		AddCreateItem("create-1", "articles", directus.Item{"title": "Hello"}).
		AddUpdateItem("update-1", "articles", "7", directus.Item{"title": "Hi"}).
		AddDeleteItem("delete-1", "articles", "8").
		AddUpdateFile("file-1", "abc", &directus.FileUpdateRequest{Title: &title}).
		AddDeleteFile("file-2", "def").
		AddCreateFolder("folder-1", &directus.FolderRequest{Name: "Docs"}).
		AddDeleteFolder("folder-2", "f9").
		Build()

	require.Len(t, operations, 7)

	assert.Equal(t, directus.OperationCreate, operations[0].Type)
	assert.Equal(t, directus.ResourceItems, operations[0].Resource)
	assert.Equal(t, "articles", operations[0].Collection)

	assert.Equal(t, directus.OperationUpdate, operations[1].Type)
	assert.Equal(t, "7", operations[1].Target)

	assert.Equal(t, directus.OperationDelete, operations[2].Type)
	assert.Equal(t, "8", operations[2].Target)

	assert.Equal(t, directus.ResourceFiles, operations[3].Resource)
	assert.Equal(t, directus.ResourceFiles, operations[4].Resource)
	assert.Equal(t, directus.ResourceFolders, operations[5].Resource)
	assert.Equal(t, "f9", operations[6].Target)
}

func TestBatchTransaction_RollsBackCreates(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockItems := &MockItemsClient{}
	mockClient.On("Items", "articles").Return(mockItems)

	good := directus.Item{"title": "Good"}
	bad := directus.Item{"title": "Bad"}

	mockItems.On("Create", mock.Anything, good).Return(directus.Item{"id": float64(11), "title": "Good"}, nil)
	mockItems.On("Create", mock.Anything, bad).Return(nil, errItemNotFound)
	mockItems.On("Delete", mock.Anything, "11").Return(nil)

	transaction := directus.NewBatchTransaction(directus.NewBatchExecutor(mockClient, 1))
	transaction.
		Add(directus.BatchOperation{ID: "good", Type: directus.OperationCreate, Resource: directus.ResourceItems, Collection: "articles", Data: good}).
		Add(directus.BatchOperation{ID: "bad", Type: directus.OperationCreate, Resource: directus.ResourceItems, Collection: "articles", Data: bad})

	results, err := transaction.Execute(context.Background())
	require.ErrorIs(t, err, directus.ErrTransactionFailed)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, results, 2)

	rollback := transaction.RollbackResults()
	require.Len(t, rollback, 1)
	assert.Equal(t, "rollback_good", rollback[0].ID)
	assert.True(t, rollback[0].Success)

	mockItems.AssertExpectations(t)
}

func TestBatchTransaction_WithoutRollback(t *testing.T) {
	t.Parallel()

	mockClient := &MockClient{}
	mockItems := &MockItemsClient{}
	mockClient.On("Items", "articles").Return(mockItems)

	mockItems.On("Create", mock.Anything, mock.Anything).Return(nil, errItemNotFound)

	transaction := directus.NewBatchTransaction(directus.NewBatchExecutor(mockClient, 1)).SetRollback(false)
	transaction.Add(directus.BatchOperation{
		ID: "op", Type: directus.OperationCreate, Resource: directus.ResourceItems, Collection: "articles", Data: directus.Item{},
	})

	_, err := transaction.Execute(context.Background())
	require.ErrorIs(t, err, directus.ErrTransactionFailed)
	assert.Empty(t, transaction.RollbackResults())
	mockItems.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
