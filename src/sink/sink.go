// Package sink publishes harvested reports to a message broker.
package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"bench-harvester/src/bench"
)

// ReportsTopic receives one message per harvested report, keyed by run ID.
const ReportsTopic = "bench.reports"

// Publisher sends messages to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	// Publish sends value to topic. For Redpanda/Kafka, key is used for
	// partition assignment.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Close flushes and shuts down the publisher.
	Close() error
}

// Message is a published record.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// PublishReport sends report to ReportsTopic in the cache JSON layout.
func PublishReport(ctx context.Context, p Publisher, report *bench.JobReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := p.Publish(ctx, ReportsTopic, report.Run.ID, data); err != nil {
		return fmt.Errorf("failed to publish report for run %s: %w", report.Run.ID, err)
	}
	return nil
}
