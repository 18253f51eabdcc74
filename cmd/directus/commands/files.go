package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewFilesCommand creates the files command group.
func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Manage files",
		Long:    "List, view, import, update and delete file metadata",
	}

	cmd.AddCommand(newFilesListCommand())
	cmd.AddCommand(newFilesGetCommand())
	cmd.AddCommand(newFilesImportCommand())
	cmd.AddCommand(newFilesUpdateCommand())
	cmd.AddCommand(newFilesDeleteCommand())

	return cmd
}

func newFilesListCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Long:  "List the metadata of stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				files, err := client.Files().List(ctx, query)
				if err != nil {
					return fmt.Errorf("failed to list files: %w", err)
				}

				return render(cmd, files, func(table *tablewriter.Table) {
					table.Header("ID", "Title", "Type", "Size", "Folder", "Uploaded On")

					for _, file := range files {
						_ = table.Append(file.ID, stringValue(file.Title), stringValue(file.Type),
							stringValue(file.Filesize.String()), stringValue(file.Folder), stringValue(file.UploadedOn))
					}
				})
			})
		},
	}

	addQueryFlags(cmd, &flags, true)

	return cmd
}

func newFilesGetCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Get file details",
		Long:  "Display the metadata of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := flags.build(cmd)
			if err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				file, err := client.Files().Get(ctx, args[0], query)
				if err != nil {
					return fmt.Errorf("failed to get file: %w", err)
				}

				return renderFile(cmd, file)
			})
		},
	}

	addQueryFlags(cmd, &flags, false)

	return cmd
}

// fileMetadataFlags are the editable fields shared by import and update.
type fileMetadataFlags struct {
	title       string
	description string
	location    string
	folder      string
	tags        []string
}

func addFileMetadataFlags(cmd *cobra.Command, flags *fileMetadataFlags) {
	cmd.Flags().StringVar(&flags.title, "title", "", "file title")
	cmd.Flags().StringVar(&flags.description, "description", "", "file description")
	cmd.Flags().StringVar(&flags.location, "location", "", "file location")
	cmd.Flags().StringVar(&flags.folder, "folder", "", "folder ID")
	cmd.Flags().StringSliceVar(&flags.tags, "tags", nil, "file tags")
}

// request returns the fields that were set on cmd, or nil when none were.
func (f *fileMetadataFlags) request(cmd *cobra.Command) *directus.FileUpdateRequest {
	request := &directus.FileUpdateRequest{}
	changed := false

	for _, field := range []struct {
		name   string
		value  string
		target **string
	}{
		{"title", f.title, &request.Title},
		{"description", f.description, &request.Description},
		{"location", f.location, &request.Location},
		{"folder", f.folder, &request.Folder},
	} {
		if cmd.Flags().Changed(field.name) {
			value := field.value
			*field.target = &value
			changed = true
		}
	}

	if cmd.Flags().Changed("tags") {
		request.Tags = f.tags
		changed = true
	}

	if !changed {
		return nil
	}

	return request
}

func newFilesImportCommand() *cobra.Command {
	var flags fileMetadataFlags

	cmd := &cobra.Command{
		Use:   "import URL",
		Short: "Import a file from a URL",
		Long:  "Have Directus download a file from a URL and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := &directus.FileCreateRequest{URL: args[0], Data: flags.request(cmd)}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				file, err := client.Files().Create(ctx, request)
				if err != nil {
					return fmt.Errorf("failed to import file: %w", err)
				}

				return renderFile(cmd, file)
			})
		},
	}

	addFileMetadataFlags(cmd, &flags)

	return cmd
}

func newFilesUpdateCommand() *cobra.Command {
	var flags fileMetadataFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update file metadata",
		Long:  "Change the title, description, location, folder or tags of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := flags.request(cmd)
			if request == nil {
				return constants.ErrNoUpdateFields
			}

			return withClient(cmd, func(ctx context.Context, client directus.Client) error {
				file, err := client.Files().Update(ctx, args[0], request)
				if err != nil {
					return fmt.Errorf("failed to update file: %w", err)
				}

				return renderFile(cmd, file)
			})
		},
	}

	addFileMetadataFlags(cmd, &flags)

	return cmd
}

func newFilesDeleteCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "delete ID [ID...]",
		Short: "Delete files",
		Long:  "Delete one or more files together with their stored data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteAll(cmd, directus.ResourceFiles, "", args, concurrency)
		},
	}

	addConcurrencyFlag(cmd, &concurrency)

	return cmd
}

func renderFile(cmd *cobra.Command, file *directus.File) error {
	return render(cmd, file, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("ID", file.ID)
		_ = table.Append("Title", stringValue(file.Title))
		_ = table.Append("Download Name", stringValue(file.FilenameDownload))
		_ = table.Append("Disk Name", stringValue(file.FilenameDisk))
		_ = table.Append("Storage", stringValue(file.Storage))
		_ = table.Append("Type", stringValue(file.Type))
		_ = table.Append("Size", stringValue(file.Filesize.String()))
		_ = table.Append("Width", stringValue(file.Width))
		_ = table.Append("Height", stringValue(file.Height))
		_ = table.Append("Folder", stringValue(file.Folder))
		_ = table.Append("Uploaded By", stringValue(file.UploadedBy))
		_ = table.Append("Uploaded On", stringValue(file.UploadedOn))
		_ = table.Append("Description", stringValue(file.Description))
		_ = table.Append("Location", stringValue(file.Location))
		_ = table.Append("Tags", stringValue(strings.Join(file.Tags, ", ")))
	})
}
