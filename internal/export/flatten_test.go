package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenNestedDocument(t *testing.T) {
	doc := map[string]interface{}{
		"id": "1",
		"user": map[string]interface{}{
			"name": "ada",
			"address": map[string]interface{}{
				"city": "london",
			},
		},
	}

	flat := Flatten(doc)
	assert.Equal(t, "1", flat["id"])
	assert.Equal(t, "ada", flat["user.name"])
	assert.Equal(t, "london", flat["user.address.city"])
	assert.Len(t, flat, 3)
}

func TestUnionHeaderSortedAcrossRecords(t *testing.T) {
	records := []map[string]interface{}{
		{"a": 1, "b": 2},
		{"b": 3, "c": 4},
	}

	assert.Equal(t, []string{"a", "b", "c"}, UnionHeader(records))
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, "hello", StringValue("hello"))
	assert.Equal(t, "42", StringValue(42))
}
