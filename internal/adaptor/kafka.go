package adaptor

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// LogReaderFactory is interface LogReader constructor
type LogReaderFactory func(cfg LogReaderConfig) LogReader

// LogReaderConfig has parameters to read one partition of one topic.
type LogReaderConfig struct {
	Brokers   []string
	Topic     string
	Partition int
	MaxWait   time.Duration
}

// LogReader is interface of kafka.Reader bound to one partition. Offsets are
// managed by caller (checkpoint), not by consumer group.
type LogReader interface {
	SetOffset(offset int64) error
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaReader creates actual kafka-go reader
func NewKafkaReader(cfg LogReaderConfig) LogReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     cfg.Topic,
		Partition: cfg.Partition,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   cfg.MaxWait,
	})
}
