package directus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"golang.org/x/sync/errgroup"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedResourceType  = errors.New("unsupported resource type")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidBatchData         = errors.New("invalid data type for batch operation")
	ErrMissingCollection        = errors.New("items operation requires a collection")
	ErrTransactionFailed        = errors.New("transaction failed")
)

// OperationType names the action of a batch operation.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
	OperationGet    OperationType = "get"
)

// ResourceType names the endpoint family a batch operation targets.
type ResourceType string

const (
	ResourceItems   ResourceType = "items"
	ResourceFiles   ResourceType = "files"
	ResourceFolders ResourceType = "folders"
)

// BatchOperation represents a single operation in a batch.
//
// Data carries the request body: an Item for items, a *FileCreateRequest or
// *FileUpdateRequest for files and a *FolderRequest for folders. Target is the
// primary key for update, delete and get.
type BatchOperation struct {
	ID         string
	Type       OperationType
	Resource   ResourceType
	Collection string
	Target     string
	Data       interface{}
	Query      *Query
	// Callback is invoked from the worker goroutine once the operation completes.
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

type crudFuncs struct {
	create func(ctx context.Context, operation BatchOperation) (interface{}, error)
	update func(ctx context.Context, operation BatchOperation) (interface{}, error)
	remove func(ctx context.Context, operation BatchOperation) (interface{}, error)
	get    func(ctx context.Context, operation BatchOperation) (interface{}, error)
}

// handleCrudOperation dispatches operation to the matching function.
func handleCrudOperation(ctx context.Context, operation BatchOperation, funcs crudFuncs) *BatchResult {
	var run func(ctx context.Context, operation BatchOperation) (interface{}, error)

	switch operation.Type {
	case OperationCreate:
		run = funcs.create
	case OperationUpdate:
		run = funcs.update
	case OperationDelete:
		run = funcs.remove
	case OperationGet:
		run = funcs.get
	default:
		return &BatchResult{
			ID:    operation.ID,
			Error: fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type),
		}
	}

	data, err := run(ctx, operation)
	if err != nil {
		return &BatchResult{ID: operation.ID, Error: err}
	}

	return &BatchResult{ID: operation.ID, Success: true, Data: data}
}

// resourceClientOps is the shape shared by the files and folders clients.
type resourceClientOps[TCreateRequest, TUpdateRequest, TResponse any] interface {
	Create(ctx context.Context, request *TCreateRequest) (*TResponse, error)
	Update(ctx context.Context, id string, request *TUpdateRequest) (*TResponse, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string, query *Query) (*TResponse, error)
}

func resourceCrudFuncs[TCreateRequest, TUpdateRequest, TResponse any](
	client resourceClientOps[TCreateRequest, TUpdateRequest, TResponse],
) crudFuncs {
	return crudFuncs{
		create: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			request, ok := operation.Data.(*TCreateRequest)
			if !ok {
				return nil, fmt.Errorf("%w: %s create expects %T", ErrInvalidBatchData, operation.Resource, request)
			}

			return client.Create(ctx, request)
		},
		update: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			request, ok := operation.Data.(*TUpdateRequest)
			if !ok {
				return nil, fmt.Errorf("%w: %s update expects %T", ErrInvalidBatchData, operation.Resource, request)
			}

			return client.Update(ctx, operation.Target, request)
		},
		remove: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			return nil, client.Delete(ctx, operation.Target)
		},
		get: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			return client.Get(ctx, operation.Target, operation.Query)
		},
	}
}

func itemCrudFuncs(client ItemsClient) crudFuncs {
	itemData := func(operation BatchOperation) (Item, error) {
		switch data := operation.Data.(type) {
		case Item:
			return data, nil
		case map[string]interface{}:
			return Item(data), nil
		default:
			return nil, fmt.Errorf("%w: items %s expects an Item", ErrInvalidBatchData, operation.Type)
		}
	}

	return crudFuncs{
		create: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			item, err := itemData(operation)
			if err != nil {
				return nil, err
			}

			return client.Create(ctx, item)
		},
		update: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			item, err := itemData(operation)
			if err != nil {
				return nil, err
			}

			return client.Update(ctx, operation.Target, item)
		},
		remove: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			return nil, client.Delete(ctx, operation.Target)
		},
		get: func(ctx context.Context, operation BatchOperation) (interface{}, error) {
			return client.Get(ctx, operation.Target, operation.Query)
		},
	}
}

// BatchExecutor runs independent operations concurrently against one client.
// A failing operation never stops its siblings.
type BatchExecutor struct {
	client      Client
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client Client, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}
}

// SetTimeout sets the timeout of each operation.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are returned in the order of operations.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var group errgroup.Group

	group.SetLimit(b.concurrency)

	for index, operation := range operations {
		group.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}

			return nil
		})
	}

	_ = group.Wait()

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	switch operation.Resource {
	case ResourceItems:
		if operation.Collection == "" {
			return &BatchResult{ID: operation.ID, Error: ErrMissingCollection}
		}

		return handleCrudOperation(ctx, operation, itemCrudFuncs(b.client.Items(operation.Collection)))
	case ResourceFiles:
		return handleCrudOperation(ctx, operation, resourceCrudFuncs[FileCreateRequest, FileUpdateRequest, File](b.client.Files()))
	case ResourceFolders:
		return handleCrudOperation(ctx, operation, resourceCrudFuncs[FolderRequest, FolderRequest, Folder](b.client.Folders()))
	default:
		return &BatchResult{
			ID:    operation.ID,
			Error: fmt.Errorf("%w: %s", ErrUnsupportedResourceType, operation.Resource),
		}
	}
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		operations: make([]BatchOperation, 0),
	}
}

// AddCreateItem adds an item creation operation.
func (b *BatchBuilder) AddCreateItem(id, collection string, item Item) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationCreate, Resource: ResourceItems, Collection: collection, Data: item,
	})
}

// AddUpdateItem adds an item update operation.
func (b *BatchBuilder) AddUpdateItem(id, collection, key string, item Item) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationUpdate, Resource: ResourceItems, Collection: collection, Target: key, Data: item,
	})
}

// AddDeleteItem adds an item deletion operation.
func (b *BatchBuilder) AddDeleteItem(id, collection, key string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationDelete, Resource: ResourceItems, Collection: collection, Target: key,
	})
}

// AddGetItem adds an item read operation.
func (b *BatchBuilder) AddGetItem(id, collection, key string, query *Query) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationGet, Resource: ResourceItems, Collection: collection, Target: key, Query: query,
	})
}

// AddUpdateFile adds a file metadata update operation.
func (b *BatchBuilder) AddUpdateFile(id, key string, request *FileUpdateRequest) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationUpdate, Resource: ResourceFiles, Target: key, Data: request,
	})
}

// AddDeleteFile adds a file deletion operation.
func (b *BatchBuilder) AddDeleteFile(id, key string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationDelete, Resource: ResourceFiles, Target: key,
	})
}

// AddCreateFolder adds a folder creation operation.
func (b *BatchBuilder) AddCreateFolder(id string, request *FolderRequest) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationCreate, Resource: ResourceFolders, Data: request,
	})
}

// AddDeleteFolder adds a folder deletion operation.
func (b *BatchBuilder) AddDeleteFolder(id, key string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id, Type: OperationDelete, Resource: ResourceFolders, Target: key,
	})
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the built operations.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}

// BatchTransaction runs a batch and, when any operation fails, deletes what
// the successful create operations produced. Updates and deletes cannot be undone.
type BatchTransaction struct {
	mutex           sync.Mutex
	operations      []BatchOperation
	results         []BatchResult
	rollbackResults []BatchResult
	executor        *BatchExecutor
	rollback        bool
}

// NewBatchTransaction creates a new batch transaction.
func NewBatchTransaction(executor *BatchExecutor) *BatchTransaction {
	return &BatchTransaction{
		executor:   executor,
		operations: make([]BatchOperation, 0),
		rollback:   true,
	}
}

// Add adds an operation to the transaction.
func (t *BatchTransaction) Add(operation BatchOperation) *BatchTransaction {
	t.operations = append(t.operations, operation)

	return t
}

// SetRollback sets whether to rollback on failure.
func (t *BatchTransaction) SetRollback(rollback bool) *BatchTransaction {
	t.rollback = rollback

	return t
}

// RollbackResults returns the results of the compensating deletes of the last Execute.
func (t *BatchTransaction) RollbackResults() []BatchResult {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.rollbackResults
}

// Execute executes the transaction.
func (t *BatchTransaction) Execute(ctx context.Context) ([]BatchResult, error) {
	results, err := t.executor.Execute(ctx, t.operations)
	if err != nil {
		return results, err
	}

	t.mutex.Lock()
	t.results = results
	t.rollbackResults = nil
	t.mutex.Unlock()

	var failedOps []string

	for _, result := range results {
		if !result.Success {
			failedOps = append(failedOps, result.ID)
		}
	}

	if len(failedOps) == 0 {
		return results, nil
	}

	if t.rollback {
		t.performRollback(ctx)
	}

	return results, fmt.Errorf("%w, %d operations failed: %v", ErrTransactionFailed, len(failedOps), failedOps)
}

func (t *BatchTransaction) performRollback(ctx context.Context) {
	var rollbackOps []BatchOperation

	for i, result := range t.results {
		original := t.operations[i]
		if !result.Success || original.Type != OperationCreate {
			continue
		}

		key := createdKey(result.Data)
		if key == "" {
			continue
		}

		rollbackOps = append(rollbackOps, BatchOperation{
			ID:         "rollback_" + original.ID,
			Type:       OperationDelete,
			Resource:   original.Resource,
			Collection: original.Collection,
			Target:     key,
		})
	}

	if len(rollbackOps) == 0 {
		return
	}

	rollbackResults, _ := t.executor.Execute(ctx, rollbackOps)

	t.mutex.Lock()
	t.rollbackResults = rollbackResults
	t.mutex.Unlock()
}

// createdKey extracts the primary key of a created resource.
func createdKey(data interface{}) string {
	switch created := data.(type) {
	case Item:
		return created.ID()
	case *File:
		if created != nil {
			return created.ID
		}
	case *Folder:
		if created != nil {
			return created.ID
		}
	}

	return ""
}
