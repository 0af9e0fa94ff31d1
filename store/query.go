package store

import (
	"errors"

	"lumen/models"
)

// ErrNotFound is returned by FindByID when no document has the ID.
var ErrNotFound = errors.New("document not found")

// Operator identifies a leaf filter condition.
type Operator string

const (
	// OpEquals matches documents whose field equals the value exactly.
	OpEquals Operator = "equals"
	// OpIn matches documents whose field contains ANY of the values.
	OpIn Operator = "in"
	// OpAll matches documents whose field contains ALL of the values.
	OpAll Operator = "all"
	// OpGreaterEq and OpLessEq are inclusive range bounds. The value
	// may be a float64 or a time.Time.
	OpGreaterEq Operator = "gte"
	OpLessEq    Operator = "lte"
	// OpMatch is an analyzed text match, optionally fuzzy. An empty
	// field matches against the composite text of the document.
	OpMatch Operator = "match"
	// OpIDIn constrains results to a set of document IDs. An empty
	// set matches nothing.
	OpIDIn Operator = "id_in"
)

// Condition is a leaf of the filter tree.
type Condition struct {
	Field     string
	Op        Operator
	Value     any
	Fuzziness int // only meaningful for OpMatch
}

// Where is a boolean filter tree. Exactly one of Cond, And, Or is
// expected to be set on a node; Not may accompany And.
type Where struct {
	Cond *Condition
	And  []*Where
	Or   []*Where
	Not  []*Where
}

// Cond builds a leaf node.
func Cond(field string, op Operator, value any) *Where {
	return &Where{Cond: &Condition{Field: field, Op: op, Value: value}}
}

// And builds a conjunction node.
func And(children ...*Where) *Where {
	return &Where{And: children}
}

// Or builds a disjunction node.
func Or(children ...*Where) *Where {
	return &Where{Or: children}
}

// Aggregation is one metric computed over the matched set.
type Aggregation struct {
	Op    string // min, max, avg, sum, count
	Field string
}

// FindParams describes one composite query against a collection.
type FindParams struct {
	Where *Where

	// Sort entries use bleve conventions: a leading "-" means
	// descending. Empty means relevance order.
	Sort []string

	GroupBy      string
	Facets       []string
	Aggregations map[string]Aggregation

	Page  int
	Limit int

	// Depth controls relationship population: 0 leaves relation
	// fields as bare IDs, each level above that replaces them with
	// the referenced documents.
	Depth int

	// Fields restricts which stored fields are returned. Empty means
	// all fields.
	Fields []string
}

// FindResult is the outcome of a Find call.
type FindResult struct {
	Docs       []map[string]any
	TotalDocs  uint64
	TotalPages int

	Facets       map[string][]models.FacetCount
	Groups       map[string][]map[string]any
	Aggregations map[string]float64
}
