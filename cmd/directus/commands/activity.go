package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewActivityCommand creates the activity command group.
func NewActivityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Inspect the activity log",
		Long:  "List and view the actions recorded by Directus",
	}

	cmd.AddCommand(newActivityListCommand())
	cmd.AddCommand(newActivityGetCommand())

	return cmd
}

func newActivityListCommand() *cobra.Command {
	var (
		flags      queryFlags
		collection string
		action     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List activity",
		Long:  "List activity entries, newest first unless --sort is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := activityQuery(cmd, &flags, collection, action)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				entries, err := client.Activity().List(ctx, query)
				if err != nil {
					return fmt.Errorf("failed to list activity: %w", err)
				}

				return render(cmd, entries, func(table *tablewriter.Table) {
					table.Header("ID", "Action", "Collection", "Item", "User", "Timestamp")

					for _, entry := range entries {
						_ = table.Append(strconv.Itoa(entry.ID), actionTitle(entry.Action), entry.Collection, entry.Item,
							stringValue(entry.User), stringValue(entry.Timestamp))
					}
				})
			})
		},
	}

	addQueryFlags(cmd, &flags, true)
	cmd.Flags().StringVar(&collection, "collection", "", "only entries for this collection")
	cmd.Flags().StringVar(&action, "action", "", "only entries with this action (create, update, delete, login, ...)")

	return cmd
}

// activityQuery combines the generic query flags with the collection and
// action shortcuts.
func activityQuery(cmd *cobra.Command, flags *queryFlags, collection, action string) (*directus.Query, error) {
	query, err := flags.build(cmd)
	if err != nil {
		return nil, err
	}

	if query == nil {
		query = directus.NewQuery()
	}

	var filters []directus.Filter

	if query.Filter != nil {
		filters = append(filters, query.Filter)
	}

	if collection != "" {
		filters = append(filters, directus.Field("collection", directus.OpEq, collection))
	}

	if action != "" {
		filters = append(filters, directus.Field("action", directus.OpEq, action))
	}

	switch len(filters) {
	case 0:
	case 1:
		query.WithFilter(filters[0])
	default:
		query.WithFilter(directus.And(filters...))
	}

	if len(query.Sort) == 0 {
		query.WithSort("-timestamp")
	}

	return query, nil
}

func newActivityGetCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Get an activity entry",
		Long:  "Display a single activity entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: %s", constants.ErrInvalidActivityID, args[0])
			}

			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				entry, err := client.Activity().Get(ctx, id, query)
				if err != nil {
					return fmt.Errorf("failed to get activity: %w", err)
				}

				return render(cmd, entry, func(table *tablewriter.Table) {
					table.Header("Property", "Value")
					_ = table.Append("ID", strconv.Itoa(entry.ID))
					_ = table.Append("Action", actionTitle(entry.Action))
					_ = table.Append("Collection", entry.Collection)
					_ = table.Append("Item", entry.Item)
					_ = table.Append("User", stringValue(entry.User))
					_ = table.Append("Timestamp", stringValue(entry.Timestamp))
					_ = table.Append("IP", stringValue(entry.IP))
					_ = table.Append("User Agent", stringValue(entry.UserAgent))
					_ = table.Append("Comment", stringValue(entry.Comment))
					_ = table.Append("Revisions", strconv.Itoa(len(entry.Revisions)))
				})
			})
		},
	}

	addQueryFlags(cmd, &flags, false)

	return cmd
}

// actionTitle formats an activity action such as "create" for display.
func actionTitle(action string) string {
	if action == "" {
		return constants.NotAvailable
	}

	return cases.Title(language.English).String(action)
}
