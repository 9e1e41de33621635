package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorPrintsMatchedRecords(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- RecordsEvent{Records: []string{"a", "b"}, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	sum := agg.Run(context.Background(), events, stop)

	assert.Equal(t, "a\nb\n", out.String())
	assert.EqualValues(t, 2, sum.RecordsMatched)
	assert.NoError(t, sum.FatalErr)
}

func TestAggregatorWithFilenamePrefixesTab(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{WithFilename: true}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- RecordsEvent{Records: []string{"row"}, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	agg.Run(context.Background(), events, stop)

	assert.Equal(t, "s3://b/k\trow\n", out.String())
}

func TestAggregatorCountingModeSumsIntegers(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{Count: true}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- RecordsEvent{Records: []string{"3", "4"}, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	sum := agg.Run(context.Background(), events, stop)
	assert.EqualValues(t, 7, sum.RecordsMatched)
	assert.Empty(t, out.String())

	agg.PrintCount(sum)
	assert.Equal(t, "7\n", out.String())
}

func TestAggregatorEnforcesLimitAndRaisesEarlyStop(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{Limit: 2}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- RecordsEvent{Records: []string{"a", "b", "c"}, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	sum := agg.Run(context.Background(), events, stop)

	assert.Equal(t, "a\nb\n", out.String())
	assert.EqualValues(t, 2, sum.RecordsMatched)
	assert.True(t, stop.IsSet())
	assert.True(t, sum.StoppedEarly)
}

func TestAggregatorCountingModeIgnoresLimit(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{Count: true, Limit: 2}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- RecordsEvent{Records: []string{"3", "4", "5"}, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	sum := agg.Run(context.Background(), events, stop)

	assert.EqualValues(t, 12, sum.RecordsMatched)
	assert.False(t, sum.StoppedEarly)
	assert.False(t, stop.IsSet())

	agg.PrintCount(sum)
	assert.Equal(t, "12\n", out.String())
}

func TestAggregatorFatalErrorStopsRun(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{}, &out, 2, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- ErrorEvent{Err: errors.New("boom"), Fatal: true, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}
	events <- WorkerExitEvent{WorkerID: 1}

	sum := agg.Run(context.Background(), events, stop)
	require.Error(t, sum.FatalErr)
	assert.Contains(t, sum.FatalErr.Error(), "boom")
	assert.True(t, stop.IsSet())
}

func TestAggregatorWaitsForAllWorkerExits(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{}, &out, 2, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	done := make(chan Summary, 1)
	go func() {
		done <- agg.Run(context.Background(), events, stop)
	}()

	events <- WorkerExitEvent{WorkerID: 0}

	select {
	case <-done:
		t.Fatal("aggregator returned before all workers exited")
	case <-time.After(50 * time.Millisecond):
	}

	events <- WorkerExitEvent{WorkerID: 1}
	<-done
}

func TestAggregatorNonFatalErrorDoesNotStop(t *testing.T) {
	var out bytes.Buffer
	agg := NewAggregator(Query{}, &out, 1, nil)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	events <- ErrorEvent{Err: errors.New("retry me"), Fatal: false, S3Path: "s3://b/k"}
	events <- WorkerExitEvent{WorkerID: 0}

	sum := agg.Run(context.Background(), events, stop)
	assert.NoError(t, sum.FatalErr)
	assert.False(t, stop.IsSet())
}
