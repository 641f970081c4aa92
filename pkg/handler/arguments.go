package handler

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/batch"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/m-mizutani/envlake/pkg/status"
	"github.com/m-mizutani/envlake/pkg/stream"
	"github.com/pkg/errors"
)

// Arguments has configuration, Event record and adaptors. Adaptor fields are
// replaced by mocks in tests; nil means the actual AWS, Kafka or PostgreSQL
// client.
type Arguments struct {
	Config
	Event interface{}

	NewS3          adaptor.S3ClientFactory         `json:"-"`
	NewSQS         adaptor.SQSClientFactory        `json:"-"`
	NewLogReader   adaptor.LogReaderFactory        `json:"-"`
	CheckpointRepo repository.CheckpointRepository `json:"-"`
	Warehouse      repository.WarehouseRepository  `json:"-"`

	closers []func()
}

// EventRecord is decapslated event data (e.g. Body of SQS event)
type EventRecord []byte

// Bind unmarshal event record to object
func (x EventRecord) Bind(ev interface{}) error {
	if err := json.Unmarshal(x, ev); err != nil {
		Logger.WithField("raw", string(x)).Error("json.Unmarshal")
		return errors.Wrap(err, "Failed json.Unmarshal in EventRecord.Bind")
	}
	return nil
}

// DecapSQSEvent decapslates wrapped body data in SQSEvent
func (x *Arguments) DecapSQSEvent() ([]EventRecord, error) {
	var sqsEvent events.SQSEvent
	if err := x.BindEvent(&sqsEvent); err != nil {
		return nil, err
	}

	var output []EventRecord
	for _, record := range sqsEvent.Records {
		output = append(output, EventRecord(record.Body))
	}

	return output, nil
}

// BindEvent directly decode event data and unmarshal to ev object.
func (x *Arguments) BindEvent(ev interface{}) error {
	raw, err := json.Marshal(x.Event)
	if err != nil {
		Logger.WithField("event", x.Event).Error("json.Marshal")
		return errors.Wrap(err, "Failed to marshal lambda event in BindEvent")
	}

	if err := json.Unmarshal(raw, ev); err != nil {
		Logger.WithField("raw", string(raw)).Error("json.Unmarshal")
		return errors.Wrap(err, "Failed json.Unmarshal in BindEvent")
	}

	return nil
}

// Close releases connections opened by service factories.
func (x *Arguments) Close() {
	for i := len(x.closers) - 1; i >= 0; i-- {
		x.closers[i]()
	}
	x.closers = nil
}

// SQSService provides service.SQSService with SQS adaptor
func (x *Arguments) SQSService() *service.SQSService {
	return service.NewSQSService(x.newSQS())
}

// LakeService provides parquet read/write of lake objects
func (x *Arguments) LakeService() *service.LakeService {
	return service.NewLakeService(x.newS3())
}

// CheckpointService provides CheckpointRepository implementation (DynamoDB)
func (x *Arguments) CheckpointService() *service.CheckpointService {
	var repo repository.CheckpointRepository

	if x.CheckpointRepo != nil {
		repo = x.CheckpointRepo
	} else {
		repo = repository.NewCheckpointDynamoDB(x.AwsRegion, x.CheckpointTableName)
	}

	return service.NewCheckpointService(repo)
}

// WarehouseRepository connects PostgreSQL and creates tables if needed. The
// connection is shared by all callers and released by Close.
func (x *Arguments) WarehouseRepository(ctx context.Context) (repository.WarehouseRepository, error) {
	if x.Warehouse != nil {
		return x.Warehouse, nil
	}

	if err := x.Validate(NeedWarehouse); err != nil {
		return nil, err
	}

	pg, err := repository.NewWarehousePostgres(ctx, x.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}

	x.Warehouse = pg
	x.closers = append(x.closers, pg.Close)
	return pg, nil
}

// BatchLakeConfig returns lake location for aggregator and loader
func (x *Arguments) BatchLakeConfig() batch.LakeConfig {
	return batch.LakeConfig{
		Region: x.LakeRegion(),
		Bucket: x.S3Bucket,
		Prefix: x.S3Prefix,
	}
}

// Aggregator provides batch.Aggregator. Completion is notified to LoadQueueURL
// if it is set.
func (x *Arguments) Aggregator() (*batch.Aggregator, error) {
	if err := x.Validate(NeedLake); err != nil {
		return nil, err
	}

	aggregator := batch.NewAggregator(x.BatchLakeConfig(), x.LakeService())
	if x.LoadQueueURL != "" {
		aggregator.EnableNotification(x.SQSService(), x.AwsRegion, x.LoadQueueURL)
	}
	return aggregator, nil
}

// Loader provides batch.Loader with relational store
func (x *Arguments) Loader(ctx context.Context) (*batch.Loader, error) {
	if err := x.Validate(NeedLake); err != nil {
		return nil, err
	}

	warehouse, err := x.WarehouseRepository(ctx)
	if err != nil {
		return nil, err
	}

	return batch.NewLoader(x.BatchLakeConfig(), x.LakeService(), warehouse), nil
}

// Committer provides stream.Committer writing to lake, relational store and
// checkpoint.
func (x *Arguments) Committer(ctx context.Context) (*stream.Committer, error) {
	if err := x.Validate(NeedLake); err != nil {
		return nil, err
	}

	warehouse, err := x.WarehouseRepository(ctx)
	if err != nil {
		return nil, err
	}

	cfg := stream.LakeConfig{
		Region: x.LakeRegion(),
		Bucket: x.S3Bucket,
		Prefix: x.S3Prefix,
	}
	return stream.NewCommitter(cfg, x.LakeService(), warehouse, x.CheckpointService()), nil
}

// Pipeline provides stream.Pipeline consuming configured partition of topic.
// The log reader is closed when the pipeline stops.
func (x *Arguments) Pipeline(ctx context.Context, topic models.Topic, registry *status.Registry) (*stream.Pipeline, error) {
	if x.NewLogReader == nil {
		if err := x.Validate(NeedLog); err != nil {
			return nil, err
		}
	}
	if x.CheckpointRepo == nil {
		if err := x.Validate(NeedCheckpoint); err != nil {
			return nil, err
		}
	}

	committer, err := x.Committer(ctx)
	if err != nil {
		return nil, err
	}

	reader := x.newLogReader()(adaptor.LogReaderConfig{
		Brokers:   x.KafkaBrokers,
		Topic:     string(topic),
		Partition: x.KafkaPartition,
		MaxWait:   x.KafkaMaxWait,
	})

	pipeline, err := stream.NewPipeline(stream.Config{
		Topic:                topic,
		Partition:            x.KafkaPartition,
		MaxBatchRecords:      x.MaxBatchRecords,
		StartFromEarliest:    x.StartFromEarliest,
		RetryInitialInterval: x.RetryInitialInterval,
		RetryMaxInterval:     x.RetryMaxInterval,
	}, reader, committer, x.CheckpointService(), &stream.IntervalTrigger{Interval: x.TriggerInterval}, registry)
	if err != nil {
		if closeErr := reader.Close(); closeErr != nil {
			Logger.WithError(closeErr).Warn("Failed to close log reader")
		}
		return nil, err
	}

	return pipeline, nil
}

func (x *Arguments) newS3() adaptor.S3ClientFactory {
	if x.NewS3 != nil {
		return x.NewS3
	}
	return adaptor.NewS3Client
}

func (x *Arguments) newSQS() adaptor.SQSClientFactory {
	if x.NewSQS != nil {
		return x.NewSQS
	}
	return adaptor.NewSQSClient
}

func (x *Arguments) newLogReader() adaptor.LogReaderFactory {
	if x.NewLogReader != nil {
		return x.NewLogReader
	}
	return adaptor.NewKafkaReader
}
