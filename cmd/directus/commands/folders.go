package commands

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewFoldersCommand creates the folders command group.
func NewFoldersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folders",
		Aliases: []string{"folder"},
		Short:   "Manage folders",
		Long:    "List, view, create, rename, move and delete virtual folders",
	}

	cmd.AddCommand(newFoldersListCommand())
	cmd.AddCommand(newFoldersGetCommand())
	cmd.AddCommand(newFoldersCreateCommand())
	cmd.AddCommand(newFoldersUpdateCommand())
	cmd.AddCommand(newFoldersDeleteCommand())

	return cmd
}

func newFoldersListCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Long:  "List virtual folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				folders, err := client.Folders().List(ctx, query)
				if err != nil {
					return fmt.Errorf("failed to list folders: %w", err)
				}

				return render(cmd, folders, func(table *tablewriter.Table) {
					table.Header("ID", "Name", "Parent")

					for _, folder := range folders {
						_ = table.Append(folder.ID, folder.Name, stringValue(folder.Parent))
					}
				})
			})
		},
	}

	addQueryFlags(cmd, &flags, true)

	return cmd
}

func newFoldersGetCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Get folder details",
		Long:  "Display a virtual folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				folder, err := client.Folders().Get(ctx, args[0], query)
				if err != nil {
					return fmt.Errorf("failed to get folder: %w", err)
				}

				return renderFolder(cmd, folder)
			})
		},
	}

	addQueryFlags(cmd, &flags, false)

	return cmd
}

func newFoldersCreateCommand() *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a folder",
		Long:  "Create a virtual folder, optionally inside a parent folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				folder, err := client.Folders().Create(ctx, &directus.FolderRequest{Name: args[0], Parent: parent})
				if err != nil {
					return fmt.Errorf("failed to create folder: %w", err)
				}

				return renderFolder(cmd, folder)
			})
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "parent folder ID")

	return cmd
}

func newFoldersUpdateCommand() *cobra.Command {
	var name, parent string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a folder",
		Long:  "Rename a folder or move it under another parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" && parent == "" {
				return constants.ErrNoUpdateFields
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				folder, err := client.Folders().Update(ctx, args[0], &directus.FolderRequest{Name: name, Parent: parent})
				if err != nil {
					return fmt.Errorf("failed to update folder: %w", err)
				}

				return renderFolder(cmd, folder)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new folder name")
	cmd.Flags().StringVar(&parent, "parent", "", "new parent folder ID")

	return cmd
}

func newFoldersDeleteCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Delete folders",
		Long:  "Delete one or more virtual folders. Files inside are moved to the root folder by Directus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteAll(cmd, directus.ResourceFolders, "", args, concurrency)
		},
	}

	addConcurrencyFlag(cmd, &concurrency)

	return cmd
}

func renderFolder(cmd *cobra.Command, folder *directus.Folder) error {
	return render(cmd, folder, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", folder.ID)
		_ = table.Append("Name", folder.Name)
		_ = table.Append("Parent", stringValue(folder.Parent))
	})
}
