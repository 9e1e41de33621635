package scanclient

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seike460/s3scan/internal/engine"
)

func TestBuildInputSerializationJSON(t *testing.T) {
	in := buildInputSerialization(engine.SelectRequest{})
	assert.Equal(t, s3.CompressionTypeNone, aws.StringValue(in.CompressionType))
	require.NotNil(t, in.JSON)
	assert.Nil(t, in.CSV)
}

func TestBuildInputSerializationCSVGzip(t *testing.T) {
	in := buildInputSerialization(engine.SelectRequest{CSV: true, FieldDelimiter: "|", RecordDelimiter: ";", Gzip: true})
	assert.Equal(t, s3.CompressionTypeGzip, aws.StringValue(in.CompressionType))
	require.NotNil(t, in.CSV)
	assert.Equal(t, "|", aws.StringValue(in.CSV.FieldDelimiter))
	assert.Equal(t, "", aws.StringValue(in.CSV.QuoteCharacter))
}

func TestBuildOutputSerializationCount(t *testing.T) {
	out := buildOutputSerialization(engine.SelectRequest{Count: true})
	require.NotNil(t, out.CSV)
	assert.Equal(t, " ", aws.StringValue(out.CSV.FieldDelimiter))
}

func TestBuildOutputSerializationDefaultJSON(t *testing.T) {
	out := buildOutputSerialization(engine.SelectRequest{})
	assert.NotNil(t, out.JSON)
}
