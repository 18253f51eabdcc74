package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// batchOutcome is the printable form of a directus.BatchResult.
type batchOutcome struct {
	ID       string `json:"id"              yaml:"id"`
	Success  bool   `json:"success"         yaml:"success"`
	Key      string `json:"key,omitempty"   yaml:"key,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string `json:"duration"        yaml:"duration"`
}

func addConcurrencyFlag(cmd *cobra.Command, concurrency *int) {
	cmd.Flags().IntVar(concurrency, "concurrency", constants.DefaultConcurrencyLimit, "number of requests run in parallel")
}

// runBatch executes operations and returns their results in order.
func runBatch(ctx context.Context, client directus.Client, operations []directus.BatchOperation,
	concurrency int,
) ([]directus.BatchResult, error) {
	executor := directus.NewBatchExecutor(client, concurrency)

	results, err := executor.Execute(ctx, operations)
	if err != nil {
		return nil, fmt.Errorf("batch execution failed: %w", err)
	}

	return results, nil
}

func batchOutcomes(results []directus.BatchResult) ([]batchOutcome, int) {
	outcomes := make([]batchOutcome, 0, len(results))
	failed := 0

	for _, result := range results {
		outcome := batchOutcome{
			ID:       result.ID,
			Success:  result.Success,
			Duration: result.Duration.String(),
		}

		if item, ok := result.Data.(directus.Item); ok {
			outcome.Key = item.ID()
		}

		if result.Error != nil {
			outcome.Error = result.Error.Error()
			failed++
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, failed
}

// renderBatchResults prints one row per operation and reports failures as an error.
func renderBatchResults(cmd *cobra.Command, results []directus.BatchResult) error {
	outcomes, failed := batchOutcomes(results)

	err := render(cmd, outcomes, func(table *tablewriter.Table) {
		table.Header("Operation", "Success", "Key", "Duration", "Error")

		for _, outcome := range outcomes {
			_ = table.Append(outcome.ID, strconv.FormatBool(outcome.Success), stringValue(outcome.Key),
				outcome.Duration, outcome.Error)
		}
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrOperationsFailed, failed, len(results))
	}

	return nil
}

// deleteAll removes every key through the batch executor.
func deleteAll(cmd *cobra.Command, resource directus.ResourceType, collection string, keys []string,
	concurrency int,
) error {
	return withClient(cmd, func(ctx context.Context, client directus.Client) error {
		operations := make([]directus.BatchOperation, 0, len(keys))

		for _, key := range keys {
			operations = append(operations, directus.BatchOperation{
				ID:         "delete-" + key,
				Type:       directus.OperationDelete,
				Resource:   resource,
				Collection: collection,
				Target:     key,
			})
		}

		results, err := runBatch(ctx, client, operations, concurrency)
		if err != nil {
			return err
		}

		return renderBatchResults(cmd, results)
	})
}
