package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Static errors for err113 compliance.
var (
	ErrHostConfigNotFound  = errors.New("host configuration not found")
	ErrOperationsFailed    = errors.New("one or more operations failed")
	ErrDataRequired        = errors.New("--data is required")
	ErrInvalidOutputFormat = errors.New("output must be table, json or yaml")
)

// render writes value in the configured output format. table fills the
// table writer when the table format is selected.
func render(cmd *cobra.Command, value interface{}, table func(*tablewriter.Table)) error {
	out := cmd.OutOrStdout()

	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}

		return encoder.Close()
	default:
		writer := tablewriter.NewWriter(out)
		table(writer)

		err := writer.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}

	return nil
}

// queryFlags holds the list/get flags shared by resource commands.
type queryFlags struct {
	fields []string
	filter string
	sort   []string
	search string
	limit  int
	offset int
	page   int
}

func addQueryFlags(cmd *cobra.Command, flags *queryFlags, listing bool) {
	cmd.Flags().StringSliceVar(&flags.fields, "fields", nil, "fields to return (supports dot notation, e.g. author.*)")

	if !listing {
		return
	}

	cmd.Flags().StringVar(&flags.filter, "filter", "", `filter as a JSON object, e.g. '{"status":{"_eq":"published"}}'`)
	cmd.Flags().StringSliceVar(&flags.sort, "sort", nil, "sort fields, prefix with - for descending")
	cmd.Flags().StringVar(&flags.search, "search", "", "full-text search term")
	cmd.Flags().IntVar(&flags.limit, "limit", constants.DefaultLimit, "maximum number of records (-1 for all)")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "number of records to skip")
	cmd.Flags().IntVar(&flags.page, "page", 0, "page number, used with --limit")
}

// build turns the flags that were set on cmd into a query. It returns nil
// when no flag was given.
func (f *queryFlags) build(cmd *cobra.Command) (*directus.Query, error) {
	query := directus.NewQuery()
	changed := false

	if len(f.fields) > 0 {
		query.WithFields(f.fields...)
		changed = true
	}

	if f.filter != "" {
		filter, err := parseFilter(f.filter)
		if err != nil {
			return nil, err
		}

		query.WithFilter(filter)
		changed = true
	}

	if len(f.sort) > 0 {
		query.WithSort(f.sort...)
		changed = true
	}

	if f.search != "" {
		query.WithSearch(f.search)
		changed = true
	}

	for _, flag := range []struct {
		name  string
		apply func(int) *directus.Query
		value int
	}{
		{"limit", query.WithLimit, f.limit},
		{"offset", query.WithOffset, f.offset},
		{"page", query.WithPage, f.page},
	} {
		if cmd.Flags().Changed(flag.name) {
			flag.apply(flag.value)
			changed = true
		}
	}

	if !changed {
		return nil, nil //nolint:nilnil
	}

	return query, nil
}

func parseFilter(raw string) (directus.Filter, error) {
	var filter directus.Filter

	err := json.Unmarshal([]byte(raw), &filter)
	if err != nil || filter == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidFilterValue, raw)
	}

	return filter, nil
}

// readData resolves a --data value. "@path" reads a JSON or YAML file, "-"
// reads standard input, anything else is parsed as inline JSON.
func readData(value string, stdin io.Reader) (directus.Item, error) {
	var (
		raw []byte
		err error
	)

	switch {
	case value == "-":
		raw, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
	case strings.HasPrefix(value, "@"):
		raw, err = readInputFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, err
		}
	default:
		raw = []byte(value)
	}

	return parseObject(raw)
}

func parseObject(raw []byte) (directus.Item, error) {
	var item directus.Item

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	if err := decoder.Decode(&item); err == nil {
		if item == nil {
			return nil, constants.ErrInvalidJSONObject
		}

		return item, nil
	}

	var fromYAML map[string]interface{}

	err := yaml.Unmarshal(raw, &fromYAML)
	if err != nil || fromYAML == nil {
		return nil, constants.ErrInvalidJSONObject
	}

	return directus.Item(fromYAML), nil
}

// validateFilePath rejects paths that escape the working directory.
func validateFilePath(filePath string) error {
	cleanPath := filepath.Clean(filePath)

	if filepath.IsAbs(filePath) {
		if cleanPath != filePath {
			return constants.ErrDirectoryTraversalDetected
		}
	} else if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return constants.ErrDirectoryTraversalDetected
	}

	return nil
}

func readInputFile(filePath string) ([]byte, error) {
	err := validateFilePath(filePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", filePath, constants.ErrNotRegularFile)
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return data, nil
}

// stringValue renders optional and loosely typed values for tables.
func stringValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return constants.NotAvailable
	case string:
		if v == "" {
			return constants.NotAvailable
		}

		return v
	case *string:
		if v == nil || *v == "" {
			return constants.NotAvailable
		}

		return *v
	case *int:
		if v == nil {
			return constants.NotAvailable
		}

		return fmt.Sprintf("%d", *v)
	case *directus.Relation:
		if v == nil {
			return constants.NotAvailable
		}

		if v.ID != "" {
			return v.ID
		}

		return directus.Item(v.Object).ID()
	case *time.Time:
		if v == nil {
			return constants.NotAvailable
		}

		return v.Format(time.RFC3339)
	case time.Time:
		if v.IsZero() {
			return constants.NotAvailable
		}

		return v.Format(time.RFC3339)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// maskToken keeps only the last few characters of a secret.
func maskToken(token string) string {
	const visible = 4

	if token == "" {
		return constants.None
	}

	if len(token) <= visible*2 {
		return constants.MaskedSecret
	}

	return constants.MaskedSecret + token[len(token)-visible:]
}
