package mock

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/segmentio/kafka-go"
)

// LogReader is on memory partition log. FetchMessage blocks until a message
// at or after current offset is appended or ctx is cancelled.
type LogReader struct {
	Topic     string
	Partition int

	mutex      sync.Mutex
	messages   []kafka.Message
	offset     int64
	setOffsets []int64
	notify     chan struct{}
	closed     bool
	fetchErrs  []error
}

// NewLogReader is constructor of LogReader mock
func NewLogReader(topic string) *LogReader {
	return &LogReader{
		Topic:  topic,
		notify: make(chan struct{}),
	}
}

// Factory returns LogReaderFactory always providing the mock
func (x *LogReader) Factory() adaptor.LogReaderFactory {
	return func(cfg adaptor.LogReaderConfig) adaptor.LogReader {
		x.mutex.Lock()
		defer x.mutex.Unlock()
		x.Partition = cfg.Partition
		return x
	}
}

// Append adds a message to tail of the log and returns its offset.
func (x *LogReader) Append(value []byte) int64 {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	offset := int64(len(x.messages))
	x.messages = append(x.messages, kafka.Message{
		Topic:     x.Topic,
		Partition: x.Partition,
		Offset:    offset,
		Value:     value,
		Time:      time.Now(),
	})

	close(x.notify)
	x.notify = make(chan struct{})
	return offset
}

// SetOffset moves read position. kafka.FirstOffset and kafka.LastOffset are
// supported.
func (x *LogReader) SetOffset(offset int64) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	x.setOffsets = append(x.setOffsets, offset)
	switch offset {
	case kafka.FirstOffset:
		x.offset = 0
	case kafka.LastOffset:
		x.offset = int64(len(x.messages))
	default:
		x.offset = offset
	}
	return nil
}

// FailFetch queues errors returned by following FetchMessage calls in order.
func (x *LogReader) FailFetch(errs ...error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.fetchErrs = append(x.fetchErrs, errs...)
}

// SetOffsets returns history of SetOffset arguments
func (x *LogReader) SetOffsets() []int64 {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]int64{}, x.setOffsets...)
}

// FetchMessage returns message at current offset.
func (x *LogReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		x.mutex.Lock()
		if x.closed {
			x.mutex.Unlock()
			return kafka.Message{}, context.Canceled
		}
		if len(x.fetchErrs) > 0 {
			err := x.fetchErrs[0]
			x.fetchErrs = x.fetchErrs[1:]
			x.mutex.Unlock()
			return kafka.Message{}, err
		}
		if x.offset < int64(len(x.messages)) {
			msg := x.messages[x.offset]
			x.offset++
			x.mutex.Unlock()
			return msg, nil
		}
		notify := x.notify
		x.mutex.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-notify:
		}
	}
}

// Close marks the reader closed
func (x *LogReader) Close() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.closed = true
	return nil
}

// Closed returns true if Close has been called
func (x *LogReader) Closed() bool {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.closed
}
