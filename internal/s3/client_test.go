package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Creation(t *testing.T) {
	tests := []struct {
		name   string
		region string
	}{
		{"Valid US East", "us-east-1"},
		{"Valid US West", "us-west-2"},
		{"Valid EU", "eu-west-1"},
		{"Valid AP", "ap-northeast-1"},
		{"Empty region", ""}, // left to the SDK's own default handling
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.region)
			assert.NotNil(t, client)
			assert.NotNil(t, client.Session())
			assert.NotNil(t, client.Uploader())
		})
	}
}

func TestNewClientWithEndpoint(t *testing.T) {
	client := NewClientWithEndpoint("us-east-1", "http://127.0.0.1:9000", true)
	require.NotNil(t, client)
	assert.NotNil(t, client.Session())
	assert.NotNil(t, client.Uploader())

	cfg := client.Session().Config
	assert.Equal(t, "http://127.0.0.1:9000", *cfg.Endpoint)
	assert.True(t, *cfg.S3ForcePathStyle)
}

func TestClient_SessionManagement(t *testing.T) {
	client := NewClient("us-east-1")
	require.NotNil(t, client)

	session1 := client.Session()
	session2 := client.Session()
	assert.Equal(t, session1, session2, "Session should be consistent across calls")
}

func TestClient_UploaderConsistency(t *testing.T) {
	client := NewClient("us-east-1")
	require.NotNil(t, client)

	uploader1 := client.Uploader()
	uploader2 := client.Uploader()
	assert.Equal(t, uploader1, uploader2, "Uploader should be consistent across calls")
}

func TestClient_MultipleInstances(t *testing.T) {
	client1 := NewClient("us-east-1")
	client2 := NewClient("us-west-2")

	assert.NotNil(t, client1)
	assert.NotNil(t, client2)
	assert.NotEqual(t, client1.Session(), client2.Session())
}

func BenchmarkClient_Creation(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client := NewClient("us-east-1")
		_ = client
	}
}

func BenchmarkClient_SessionAccess(b *testing.B) {
	client := NewClient("us-east-1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		session := client.Session()
		_ = session
	}
}
