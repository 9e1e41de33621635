// Package export writes a scan run's matched records to a file bundle
// (newline-JSON or CSV) and optionally uploads that bundle back to S3.
package export

import (
	"fmt"
	"sort"
)

// Flatten turns a nested JSON-decoded document into a single-level map
// with dotted-path keys ("user.address.city"), the minimal transform
// needed to produce a stable CSV header. It does not explode list
// values; a list is kept unchanged as a single value, which StringValue
// later renders with fmt.Sprint.
func Flatten(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto("", doc, out)
	return out
}

func flattenInto(prefix string, doc map[string]interface{}, out map[string]interface{}) {
	for k, v := range doc {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// UnionHeader computes the sorted union of keys across every flattened
// record, used as a CSV file's header row so records with differing
// fields still produce one well-formed table.
func UnionHeader(records []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)
	return header
}

// StringValue renders a flattened field value as a CSV cell.
func StringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
