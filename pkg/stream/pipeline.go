package stream

import (
	"context"
	"time"

	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/m-mizutani/envlake/internal/decoder"
	"github.com/m-mizutani/envlake/internal/enrich"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/internal/util"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/m-mizutani/envlake/pkg/status"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

// State of Pipeline
type State int

// Pipeline states
const (
	StateIdle State = iota
	StateFetching
	StateDecoding
	StateFlattening
	StateEnriching
	StateCommitting
)

func (x State) String() string {
	switch x {
	case StateIdle:
		return "Idle"
	case StateFetching:
		return "Fetching"
	case StateDecoding:
		return "Decoding"
	case StateFlattening:
		return "Flattening"
	case StateEnriching:
		return "Enriching"
	case StateCommitting:
		return "Committing"
	default:
		return "Unknown"
	}
}

// Config is parameter set of one Pipeline.
type Config struct {
	Topic     models.Topic
	Partition int

	// MaxBatchRecords closes a window when the number of fetched messages
	// reaches it. 0 means no limit.
	MaxBatchRecords int
	// StartFromEarliest reads from the first offset if no checkpoint.
	// Otherwise it reads only new messages.
	StartFromEarliest bool

	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Pipeline consumes one topic partition and commits micro batches. It is
// single goroutine except a trigger waiter per window.
type Pipeline struct {
	cfg        Config
	reader     adaptor.LogReader
	decoder    *decoder.Decoder
	enricher   *enrich.Enricher
	committer  BatchCommitter
	checkpoint *service.CheckpointService
	trigger    Trigger
	retry      *util.RetryTimer
	registry   *status.Registry
	now        func() time.Time

	state    State
	observer func(State)

	// resumeOffset is offset to seek on retry. Before the first commit
	// without checkpoint, it is startOffset until a message is fetched.
	resumeOffset int64
	startOffset  int64
	// positioned is true after the reader is moved to startOffset
	positioned bool
}

// NewPipeline is constructor of Pipeline. registry can be nil.
func NewPipeline(cfg Config, reader adaptor.LogReader, committer BatchCommitter, checkpoint *service.CheckpointService, trigger Trigger, registry *status.Registry) (*Pipeline, error) {
	dec, err := decoder.NewDecoder(cfg.Topic)
	if err != nil {
		return nil, err
	}

	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = time.Second
	}
	if cfg.RetryMaxInterval < cfg.RetryInitialInterval {
		cfg.RetryMaxInterval = cfg.RetryInitialInterval
	}

	return &Pipeline{
		cfg:        cfg,
		reader:     reader,
		decoder:    dec,
		enricher:   enrich.NewEnricher(nil),
		committer:  committer,
		checkpoint: checkpoint,
		trigger:    trigger,
		retry:      util.NewRetryTimer(cfg.RetryInitialInterval, cfg.RetryMaxInterval),
		registry:   registry,
		now:        time.Now,
	}, nil
}

// Name returns component name for status registry
func (x *Pipeline) Name() string {
	return "stream/" + string(x.cfg.Topic)
}

// SetSleeper replaces backoff sleeper. It is mainly for testing.
func (x *Pipeline) SetSleeper(sleep util.Sleeper) {
	x.retry.SetSleeper(sleep)
}

// SetStateObserver sets callback called on every state transition.
func (x *Pipeline) SetStateObserver(observer func(State)) {
	x.observer = observer
}

// Failures returns number of consecutive commit failures
func (x *Pipeline) Failures() int {
	return x.retry.RetryCount()
}

func (x *Pipeline) setState(s State) {
	x.state = s
	x.registry.SetState(x.Name(), s.String())
	if x.observer != nil {
		x.observer(s)
	}
}

func (x *Pipeline) log() *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"topic":     x.cfg.Topic,
		"partition": x.cfg.Partition,
	})
}

// Run processes windows until ctx is cancelled. In-flight batch at
// cancellation is discarded without advancing checkpoint.
func (x *Pipeline) Run(ctx context.Context) error {
	defer x.reader.Close()

	for {
		err := x.seekCheckpoint()
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil
		}
		if err := x.handleFailure(ctx, err); err != nil {
			return nil
		}
	}
	x.retry.Clear()

	for {
		x.setState(StateIdle)
		if ctx.Err() != nil {
			return nil
		}

		msgs, err := x.fetch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if err := x.handleFailure(ctx, err); err != nil {
				return nil
			}
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		batch := x.process(msgs)

		x.setState(StateCommitting)
		if err := x.committer.Commit(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err := x.handleFailure(ctx, err); err != nil {
				return nil
			}
			continue
		}

		x.retry.Clear()
		x.resumeOffset = batch.NextOffset()
		x.registry.ReportSuccess(x.Name(), batch.LastOffset, batch.Len())
	}
}

func (x *Pipeline) seekCheckpoint() error {
	offset, ok, err := x.checkpoint.Load(x.cfg.Topic, x.cfg.Partition)
	if err != nil {
		return errors.Wrap(err, "Failed to load checkpoint")
	}

	if !ok {
		offset = kafka.LastOffset
		if x.cfg.StartFromEarliest {
			offset = kafka.FirstOffset
		}
	}
	if err := x.reader.SetOffset(offset); err != nil {
		return errors.Wrapf(err, "Failed to set offset: %d", offset)
	}
	x.startOffset = offset
	x.resumeOffset = offset
	x.positioned = true

	x.log().WithField("offset", offset).Info("Start pipeline")
	return nil
}

// handleFailure reports failure, rewinds reader to resumeOffset and waits
// backoff. It returns error only if ctx is done while waiting. The reader is
// not rewound before the first message is fetched because it still stays at
// the start position and kafka.LastOffset would skip messages appended in the
// meantime.
func (x *Pipeline) handleFailure(ctx context.Context, err error) error {
	x.registry.ReportFailure(x.Name(), err)
	internal.HandleErrorWithFields(err, logrus.Fields{
		"topic":    x.cfg.Topic,
		"resume":   x.resumeOffset,
		"failures": x.retry.RetryCount() + 1,
	})

	if x.positioned && x.resumeOffset >= 0 {
		if err := x.reader.SetOffset(x.resumeOffset); err != nil {
			x.log().WithError(err).Error("Failed to rewind reader")
		}
	}

	wait, err := x.retry.Wait(ctx)
	x.log().WithField("wait", wait).WithField("failures", x.retry.RetryCount()).Warn("Retry after backoff")
	return err
}

// fetch collects messages until trigger fires or MaxBatchRecords is reached.
func (x *Pipeline) fetch(ctx context.Context) ([]kafka.Message, error) {
	x.setState(StateFetching)

	windowCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := x.trigger.Wait(windowCtx); err == nil {
			cancel()
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	var msgs []kafka.Message
	for x.cfg.MaxBatchRecords <= 0 || len(msgs) < x.cfg.MaxBatchRecords {
		msg, err := x.reader.FetchMessage(windowCtx)
		if err != nil {
			if windowCtx.Err() != nil {
				break
			}
			return nil, errors.Wrap(err, "Failed to fetch message")
		}

		if len(msgs) == 0 && x.resumeOffset < 0 {
			// No checkpoint yet. Retry must restart from the first message.
			x.resumeOffset = msg.Offset
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

type decodedMessage struct {
	ev     *models.RawEvent
	offset int64
	at     time.Time
}

// process runs decode, flatten and enrich stages for fetched messages.
func (x *Pipeline) process(msgs []kafka.Message) *models.MicroBatch {
	batch := &models.MicroBatch{
		Topic:       x.cfg.Topic,
		Partition:   x.cfg.Partition,
		FirstOffset: msgs[0].Offset,
		LastOffset:  msgs[len(msgs)-1].Offset,
	}

	x.setState(StateDecoding)
	decoded := make([]decodedMessage, 0, len(msgs))
	for _, msg := range msgs {
		ev, err := x.decoder.Decode(msg.Value)
		if err != nil {
			batch.Dropped++
			x.log().WithError(err).WithField("offset", msg.Offset).Warn("Drop malformed message")
			continue
		}
		decoded = append(decoded, decodedMessage{ev: ev, offset: msg.Offset, at: x.now().UTC()})
	}

	x.setState(StateFlattening)
	type flatRecord struct {
		rec    models.FlatRecord
		offset int64
	}
	var flat []flatRecord
	for _, d := range decoded {
		f := enrich.NewFlattener(d.ev, d.at)
		for rec, ok := f.Next(); ok; rec, ok = f.Next() {
			flat = append(flat, flatRecord{rec: rec, offset: d.offset})
		}
		batch.Dropped += f.Skipped()
	}

	x.setState(StateEnriching)
	batch.Records = make([]*models.EnrichedRecord, 0, len(flat))
	for _, f := range flat {
		batch.Records = append(batch.Records, x.enricher.Enrich(f.rec, f.offset))
	}

	return batch
}
