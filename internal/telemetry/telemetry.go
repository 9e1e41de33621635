// Package telemetry publishes a fire-and-forget JSON summary of one scan
// run to Kafka. It reports on a completed run; it never persists
// individual scanned records.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// RunSummary is the payload published once per run.
type RunSummary struct {
	RunID           string  `json:"run_id"`
	Query           string  `json:"query"`
	RecordsMatched  int64   `json:"records_matched"`
	BytesScanned    int64   `json:"bytes_scanned"`
	BytesReturned   int64   `json:"bytes_returned"`
	FilesCompleted  int64   `json:"files_completed"`
	FilesDiscovered int64   `json:"files_discovered"`
	StoppedEarly    bool    `json:"stopped_early"`
	Failed          bool    `json:"failed"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	EstimatedCost   float64 `json:"estimated_cost,omitempty"`
}

// Publisher publishes RunSummary messages to one Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher writing to the given brokers/topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish writes one run summary message, keyed by RunID, with a short
// deadline so a telemetry outage never blocks process exit.
func (p *Publisher) Publish(ctx context.Context, summary RunSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(summary.RunID),
		Value: body,
	})
}

// Close releases the underlying Kafka writer's connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
