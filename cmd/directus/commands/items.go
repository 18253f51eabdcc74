package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrEmptyImport is returned when an import file holds no items.
var ErrEmptyImport = errors.New("import file contains no items")

// NewItemsCommand creates the items command group.
func NewItemsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item"},
		Short:   "Manage collection items",
		Long:    "List, view, create, update, import and delete the items of a collection",
	}

	cmd.AddCommand(newItemsListCommand())
	cmd.AddCommand(newItemsGetCommand())
	cmd.AddCommand(newItemsCreateCommand())
	cmd.AddCommand(newItemsUpdateCommand())
	cmd.AddCommand(newItemsDeleteCommand())
	cmd.AddCommand(newItemsImportCommand())

	return cmd
}

func newItemsListCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List items",
		Long:  "List the items of a collection, optionally filtered, sorted and paginated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				items, err := client.Items(args[0]).List(ctx, query)
				if err != nil {
					return fmt.Errorf("failed to list items: %w", err)
				}

				return renderItems(cmd, items, flags.fields)
			})
		},
	}

	addQueryFlags(cmd, &flags, true)

	return cmd
}

func newItemsGetCommand() *cobra.Command {
	var (
		flags       queryFlags
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "get COLLECTION ID [ID...]",
		Short: "Get items",
		Long:  "Display one or more items by primary key. Several keys are fetched in parallel",
		Args:  cobra.MinimumNArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			collection, keys := args[0], args[1:]

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				if len(keys) == 1 {
					item, err := client.Items(collection).Get(ctx, keys[0], query)
					if err != nil {
						return fmt.Errorf("failed to get item: %w", err)
					}

					return renderItem(cmd, item)
				}

				builder := directus.NewBatchBuilder()
				for _, key := range keys {
					builder.AddGetItem("get-"+key, collection, key, query)
				}

				results, err := runBatch(ctx, client, builder.Build(), concurrency)
				if err != nil {
					return err
				}

				items := make([]directus.Item, 0, len(results))

				for _, result := range results {
					if !result.Success {
						return renderBatchResults(cmd, results)
					}

					if item, ok := result.Data.(directus.Item); ok {
						items = append(items, item)
					}
				}

				return renderItems(cmd, items, flags.fields)
			})
		},
	}

	addQueryFlags(cmd, &flags, false)
	addConcurrencyFlag(cmd, &concurrency)

	return cmd
}

func newItemsCreateCommand() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create COLLECTION",
		Short: "Create an item",
		Long:  "Create an item from inline JSON, a JSON or YAML file (@path) or standard input (-)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := requireData(cmd, data)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				created, err := client.Items(args[0]).Create(ctx, item)
				if err != nil {
					return fmt.Errorf("failed to create item: %w", err)
				}

				return renderItem(cmd, created)
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "item data: JSON, @file or -")

	return cmd
}

func newItemsUpdateCommand() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update COLLECTION ID",
		Short: "Update an item",
		Long:  "Apply a partial update to an item",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := requireData(cmd, data)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				updated, err := client.Items(args[0]).Update(ctx, args[1], item)
				if err != nil {
					return fmt.Errorf("failed to update item: %w", err)
				}

				return renderItem(cmd, updated)
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "fields to change: JSON, @file or -")

	return cmd
}

func newItemsDeleteCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "delete COLLECTION ID [ID...]",
		Short: "Delete items",
		Long:  "Delete one or more items by primary key",
		Args:  cobra.MinimumNArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteAll(cmd, directus.ResourceItems, args[0], args[1:], concurrency)
		},
	}

	addConcurrencyFlag(cmd, &concurrency)

	return cmd
}

func newItemsImportCommand() *cobra.Command {
	var (
		concurrency int
		atomic      bool
	)

	cmd := &cobra.Command{
		Use:   "import COLLECTION FILE",
		Short: "Import items",
		Long: "Create every item of a JSON or YAML list. With --atomic, items already " +
			"created are deleted again when any creation fails",
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInputFile(args[1])
			if err != nil {
				return err
			}

			items, err := parseItemList(raw)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				executor := directus.NewBatchExecutor(client, concurrency)
				transaction := directus.NewBatchTransaction(executor).SetRollback(atomic)

				for i, item := range items {
					transaction.Add(directus.BatchOperation{
						ID:         fmt.Sprintf("create-%d", i+1),
						Type:       directus.OperationCreate,
						Resource:   directus.ResourceItems,
						Collection: args[0],
						Data:       item,
					})
				}

				results, txErr := transaction.Execute(ctx)

				if rollback := transaction.RollbackResults(); len(rollback) > 0 {
					results = append(results, rollback...)
				}

				err := renderBatchResults(cmd, results)
				if txErr != nil {
					return txErr
				}

				return err
			})
		},
	}

	addConcurrencyFlag(cmd, &concurrency)
	cmd.Flags().BoolVar(&atomic, "atomic", false, "delete created items again if any creation fails")

	return cmd
}

func requireData(cmd *cobra.Command, data string) (directus.Item, error) {
	if data == "" {
		return nil, ErrDataRequired
	}

	return readData(data, cmd.InOrStdin())
}

// parseItemList decodes a JSON array or YAML sequence of objects.
func parseItemList(raw []byte) ([]directus.Item, error) {
	var items []directus.Item

	err := json.Unmarshal(raw, &items)
	if err != nil {
		var fromYAML []map[string]interface{}

		yamlErr := yaml.Unmarshal(raw, &fromYAML)
		if yamlErr != nil {
			return nil, fmt.Errorf("failed to parse file as JSON or YAML item list: %w", err)
		}

		items = make([]directus.Item, 0, len(fromYAML))
		for _, item := range fromYAML {
			items = append(items, directus.Item(item))
		}
	}

	if len(items) == 0 {
		return nil, ErrEmptyImport
	}

	return items, nil
}

// itemColumns returns fields when given, otherwise the union of the keys
// of items with "id" first.
func itemColumns(items []directus.Item, fields []string) []string {
	if len(fields) > 0 {
		return fields
	}

	seen := make(map[string]bool)

	var columns []string

	for _, item := range items {
		for key := range item {
			if key != "id" && !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	sort.Strings(columns)

	return append([]string{"id"}, columns...)
}

func renderItems(cmd *cobra.Command, items []directus.Item, fields []string) error {
	return render(cmd, items, func(table *tablewriter.Table) {
		columns := itemColumns(items, fields)

		header := make([]interface{}, 0, len(columns))
		for _, column := range columns {
			header = append(header, column)
		}

		table.Header(header...)

		for _, item := range items {
			row := make([]string, 0, len(columns))
			for _, column := range columns {
				row = append(row, stringValue(item[column]))
			}

			_ = table.Append(row)
		}
	})
}

func renderItem(cmd *cobra.Command, item directus.Item) error {
	return render(cmd, item, func(table *tablewriter.Table) {
		table.Header("Field", "Value")

		for _, column := range itemColumns([]directus.Item{item}, nil) {
			_ = table.Append(column, stringValue(item[column]))
		}
	})
}
