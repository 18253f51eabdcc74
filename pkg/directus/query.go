package directus

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-querystring/query"
)

// Filter operators understood by Directus.
const (
	OpEq          = "_eq"
	OpNeq         = "_neq"
	OpLt          = "_lt"
	OpLte         = "_lte"
	OpGt          = "_gt"
	OpGte         = "_gte"
	OpIn          = "_in"
	OpNin         = "_nin"
	OpNull        = "_null"
	OpNnull       = "_nnull"
	OpContains    = "_contains"
	OpNcontains   = "_ncontains"
	OpIcontains   = "_icontains"
	OpStartsWith  = "_starts_with"
	OpNstartsWith = "_nstarts_with"
	OpEndsWith    = "_ends_with"
	OpNendsWith   = "_nends_with"
	OpBetween     = "_between"
	OpNbetween    = "_nbetween"
	OpEmpty       = "_empty"
	OpNempty      = "_nempty"
	OpIntersects  = "_intersects"
	OpNintersects = "_nintersects"
	OpRegex       = "_regex"
)

// Filter is a Directus filter rule, e.g. {"age": {"_gt": 18}}.
// It is sent on the query string as JSON text.
type Filter map[string]interface{}

// Field builds a single field rule.
func Field(name, operator string, value interface{}) Filter {
	return Filter{name: map[string]interface{}{operator: value}}
}

// And combines rules with the logical _and operator.
func And(filters ...Filter) Filter {
	return Filter{"_and": filters}
}

// Or combines rules with the logical _or operator.
func Or(filters ...Filter) Filter {
	return Filter{"_or": filters}
}

// DeepQuery applies query parameters to a nested relation.
type DeepQuery struct {
	Fields []string
	Sort   []string
	Filter Filter
	Limit  *int
	Offset *int
	Page   *int
	Search string
	// Nested holds deep queries for relations of this relation.
	Nested map[string]*DeepQuery
}

// MarshalJSON renders the underscore-prefixed form Directus expects,
// with nested relations as sibling keys.
func (d *DeepQuery) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Nested)+7)

	for name, nested := range d.Nested {
		out[name] = nested
	}

	if len(d.Fields) > 0 {
		out["_fields"] = d.Fields
	}

	if len(d.Sort) > 0 {
		out["_sort"] = d.Sort
	}

	if len(d.Filter) > 0 {
		out["_filter"] = d.Filter
	}

	if d.Limit != nil {
		out["_limit"] = *d.Limit
	}

	if d.Offset != nil {
		out["_offset"] = *d.Offset
	}

	if d.Page != nil {
		out["_page"] = *d.Page
	}

	if d.Search != "" {
		out["_search"] = d.Search
	}

	return json.Marshal(out)
}

// Query represents the global query parameters of Directus read endpoints.
type Query struct {
	Fields []string `url:"fields,comma,omitempty"`
	Search string   `url:"search,omitempty"`
	Sort   []string `url:"sort,comma,omitempty"`
	Limit  *int     `url:"limit,omitempty"`
	Offset *int     `url:"offset,omitempty"`
	Page   *int     `url:"page,omitempty"`

	Filter Filter                `url:"-"`
	Deep   map[string]*DeepQuery `url:"-"`
	Alias  map[string]string     `url:"-"`
}

// NewQuery creates an empty query.
func NewQuery() *Query {
	return &Query{}
}

// WithFields sets the fields to return.
func (q *Query) WithFields(fields ...string) *Query {
	q.Fields = fields

	return q
}

// WithFilter sets the filter rule.
func (q *Query) WithFilter(filter Filter) *Query {
	q.Filter = filter

	return q
}

// WithSearch sets the full text search term.
func (q *Query) WithSearch(search string) *Query {
	q.Search = search

	return q
}

// WithSort sets the sort fields; prefix a field with "-" for descending order.
func (q *Query) WithSort(fields ...string) *Query {
	q.Sort = fields

	return q
}

// WithLimit sets the maximum number of records. -1 returns all records.
func (q *Query) WithLimit(limit int) *Query {
	q.Limit = &limit

	return q
}

// WithOffset skips the first n records.
func (q *Query) WithOffset(offset int) *Query {
	q.Offset = &offset

	return q
}

// WithPage selects a page, combined with the limit.
func (q *Query) WithPage(page int) *Query {
	q.Page = &page

	return q
}

// WithDeep sets a deep query for a relation.
func (q *Query) WithDeep(relation string, deep *DeepQuery) *Query {
	if q.Deep == nil {
		q.Deep = make(map[string]*DeepQuery)
	}

	q.Deep[relation] = deep

	return q
}

// WithAlias adds a field alias.
func (q *Query) WithAlias(alias, field string) *Query {
	if q.Alias == nil {
		q.Alias = make(map[string]string)
	}

	q.Alias[alias] = field

	return q
}

// Params converts the query into transport parameters. Scalars and lists are
// rendered as text; filter, deep and alias stay structured and are sent as JSON.
func (q *Query) Params() (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if q == nil {
		return params, nil
	}

	values, err := query.Values(q)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}

	for key := range values {
		params[key] = values.Get(key)
	}

	if len(q.Filter) > 0 {
		params["filter"] = q.Filter
	}

	if len(q.Deep) > 0 {
		params["deep"] = q.Deep
	}

	if len(q.Alias) > 0 {
		params["alias"] = q.Alias
	}

	return params, nil
}
