package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	frame Frame
	err   error
}

type fakeStream struct {
	frames []fakeFrame
	pos    int
	closed bool
}

func (s *fakeStream) Next() (Frame, bool, error) {
	if s.pos >= len(s.frames) {
		return Frame{}, false, nil
	}
	f := s.frames[s.pos]
	s.pos++
	if f.err != nil {
		return Frame{}, false, f.err
	}
	return f.frame, true, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type scriptedClient struct {
	attempts int
	failures int
	stream   *fakeStream
	err      error
}

func (c *scriptedClient) ListObjectsPages(context.Context, string, string, func([]ObjectSummary) bool) error {
	return errors.New("not implemented")
}

func (c *scriptedClient) SelectObject(context.Context, SelectRequest) (EventStream, error) {
	c.attempts++
	if c.attempts <= c.failures {
		return nil, errors.New("transient failure")
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

func runOneKey(t *testing.T, client ScanClient, q Query) ([]ScanEvent, *EarlyStop) {
	t.Helper()
	w := NewWorker(0, client, q, nil)
	work := make(chan WorkItem, 2)
	events := make(chan ScanEvent, 100)
	stop := NewEarlyStop()

	work <- WorkItem{Bucket: "b", Key: "k"}
	work <- sentinelItem()

	w.Run(context.Background(), work, events, stop)
	close(events)

	var got []ScanEvent
	for e := range events {
		got = append(got, e)
	}
	return got, stop
}

func TestWorkerEmitsRecordsStatsAndFileDone(t *testing.T) {
	stream := &fakeStream{frames: []fakeFrame{
		{frame: Frame{Kind: FrameRecords, Payload: []byte("one\ntwo\nthr")}},
		{frame: Frame{Kind: FrameRecords, Payload: []byte("ee\n")}},
		{frame: Frame{Kind: FrameStats, BytesScanned: 100, BytesReturned: 10}},
		{frame: Frame{Kind: FrameEnd}},
	}}
	client := &scriptedClient{stream: stream}

	events, _ := runOneKey(t, client, Query{MaxRetries: 3})

	var records []string
	var sawStats, sawDone, sawExit bool
	for _, e := range events {
		switch ev := e.(type) {
		case RecordsEvent:
			records = append(records, ev.Records...)
		case StatsEvent:
			sawStats = true
			assert.EqualValues(t, 100, ev.BytesScanned)
		case FileDoneEvent:
			sawDone = true
		case WorkerExitEvent:
			sawExit = true
		}
	}

	assert.Equal(t, []string{"one", "two", "three"}, records)
	assert.True(t, sawStats)
	assert.True(t, sawDone)
	assert.True(t, sawExit)
	assert.True(t, stream.closed)
}

func TestWorkerRetriesThenSucceeds(t *testing.T) {
	stream := &fakeStream{frames: []fakeFrame{{frame: Frame{Kind: FrameEnd}}}}
	client := &scriptedClient{stream: stream, failures: 2}

	events, _ := runOneKey(t, client, Query{MaxRetries: 5})

	var nonFatalErrors int
	var sawDone bool
	for _, e := range events {
		if ee, ok := e.(ErrorEvent); ok {
			require.False(t, ee.Fatal)
			nonFatalErrors++
		}
		if _, ok := e.(FileDoneEvent); ok {
			sawDone = true
		}
	}
	assert.Equal(t, 2, nonFatalErrors)
	assert.True(t, sawDone)
}

func TestWorkerExhaustsRetriesAndEmitsFatalError(t *testing.T) {
	client := &scriptedClient{failures: 100}

	events, _ := runOneKey(t, client, Query{MaxRetries: 2})

	var fatalCount int
	for _, e := range events {
		if ee, ok := e.(ErrorEvent); ok && ee.Fatal {
			fatalCount++
		}
	}
	assert.Equal(t, 1, fatalCount)
}

func TestWorkerMissingEndMarkerIsFatal(t *testing.T) {
	stream := &fakeStream{frames: []fakeFrame{
		{frame: Frame{Kind: FrameRecords, Payload: []byte("x\n")}},
	}}
	client := &scriptedClient{stream: stream}

	events, _ := runOneKey(t, client, Query{MaxRetries: 1})

	var gotFatal bool
	for _, e := range events {
		if ee, ok := e.(ErrorEvent); ok && ee.Fatal {
			gotFatal = true
			assert.ErrorIs(t, ee.Err, ErrEndMarkerMissing)
		}
	}
	assert.True(t, gotFatal)
}

func TestWorkerCompletedKeyCountedByStatusReporter(t *testing.T) {
	stream := &fakeStream{frames: []fakeFrame{{frame: Frame{Kind: FrameEnd}}}}
	client := &scriptedClient{stream: stream}

	var discovered int64
	status := NewStatusReporter(io.Discard, time.Hour, &discovered)

	w := NewWorker(0, client, Query{MaxRetries: 1}, status)
	work := make(chan WorkItem, 2)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	work <- WorkItem{Bucket: "b", Key: "k"}
	work <- sentinelItem()
	w.Run(context.Background(), work, events, stop)
	close(events)

	agg := NewAggregator(Query{}, io.Discard, 1, status)
	for e := range events {
		agg.apply(e, &Summary{}, stop, map[int]bool{})
	}

	snap := status.Snapshot()
	assert.EqualValues(t, 1, snap.FilesDone)
}

func TestWorkerReenqueuesSentinelOnDequeue(t *testing.T) {
	w := NewWorker(0, &scriptedClient{}, Query{}, nil)
	work := make(chan WorkItem, 2)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()

	work <- sentinelItem()
	w.Run(context.Background(), work, events, stop)

	reenqueued := <-work
	assert.True(t, reenqueued.Sentinel)

	ev := <-events
	exit, ok := ev.(WorkerExitEvent)
	require.True(t, ok)
	assert.Equal(t, 0, exit.WorkerID)
}

func TestWorkerStopsWhenEarlyStopAlreadySet(t *testing.T) {
	client := &scriptedClient{}
	w := NewWorker(7, client, Query{}, nil)
	work := make(chan WorkItem, 2)
	events := make(chan ScanEvent, 10)
	stop := NewEarlyStop()
	stop.Set()

	w.Run(context.Background(), work, events, stop)

	ev := <-events
	exit, ok := ev.(WorkerExitEvent)
	require.True(t, ok)
	assert.Equal(t, 7, exit.WorkerID)
	assert.Equal(t, 0, client.attempts)
}

func TestCarryOverDecoderHoldsPartialFragment(t *testing.T) {
	d := newCarryOverDecoder("\n")
	assert.Equal(t, []string{"a", "b"}, d.feed([]byte("a\nb\npart")))
	assert.Equal(t, []string{"ial"}, d.feed([]byte("ial\n")))
	assert.Equal(t, "", d.carry)
}
