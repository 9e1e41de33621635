package engine

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusReporterPrintsCountersOnStop(t *testing.T) {
	var out bytes.Buffer
	var discovered int64 = 5

	r := NewStatusReporter(&out, time.Hour, &discovered)
	r.Start()
	r.AddBytes(1024, 512)
	r.MarkKeyStarted("s3://b/k")
	r.MarkFileDone("s3://b/k")
	r.Stop()

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "\r"))
	assert.Contains(t, line, "discovered=5")
	assert.Contains(t, line, "completed=1")
	assert.Contains(t, line, "scanned=1.0 kB")
}

func TestStatusReporterMarkFileDoneWithoutStartIsSafe(t *testing.T) {
	var out bytes.Buffer
	var discovered int64

	r := NewStatusReporter(&out, time.Hour, &discovered)
	assert.NotPanics(t, func() {
		r.MarkFileDone("s3://b/never-started")
	})
	r.Start()
	r.Stop()
	assert.Contains(t, out.String(), "completed=1")
}
