// Package engine implements the parallel object-select scan pipeline:
// a listing producer, a pool of scan workers, a result aggregator and a
// cooperative early-stop signal.
package engine

import (
	"strconv"
	"strings"
)

// Query is the immutable configuration for one scan run, built once from
// CLI flags and shared by every worker.
type Query struct {
	// Projection is the SQL SELECT list: "*", a user expression, or
	// "count(*)" when Count is set.
	Projection string
	// Where is the optional SQL WHERE predicate, without the WHERE keyword.
	Where string
	// Limit is the maximum number of matched records to emit. Zero means
	// unlimited.
	Limit int
	// Count, when set, switches output to a single decimal count instead
	// of printing matched records.
	Count bool
	// WithFilename prefixes each printed record with its s3://bucket/key.
	WithFilename bool

	// FieldDelimiter and RecordDelimiter select CSV input/output framing.
	// Both empty means JSON(document) input.
	FieldDelimiter  string
	RecordDelimiter string

	MaxRetries int
}

// IsCSV reports whether the query selected CSV input framing.
func (q Query) IsCSV() bool {
	return q.FieldDelimiter != "" || q.RecordDelimiter != ""
}

// Expression builds the SQL expression sent to the remote select call.
func (q Query) Expression() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	switch {
	case q.Count:
		b.WriteString("count(*) ")
	case q.Projection != "":
		b.WriteString(q.Projection)
		b.WriteString(" ")
	default:
		b.WriteString("* ")
	}
	b.WriteString("FROM s3object s ")
	if q.Where != "" {
		b.WriteString("WHERE ")
		b.WriteString(q.Where)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String()
}

// effectiveDelimiters fills in the CSV defaults the remote service expects
// when only one of the two delimiters was supplied.
func (q Query) effectiveDelimiters() (field, record string) {
	field, record = q.FieldDelimiter, q.RecordDelimiter
	if field == "" {
		field = ","
	}
	if record == "" {
		record = "\n"
	}
	return field, record
}

// recordDelimiter returns the delimiter records are split on when
// reassembling a worker's per-call carry-over buffer: newline for JSON
// input, the configured CSV record delimiter otherwise.
func (q Query) recordDelimiter() string {
	if !q.IsCSV() {
		return "\n"
	}
	_, record := q.effectiveDelimiters()
	return record
}
