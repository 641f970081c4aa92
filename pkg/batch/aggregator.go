package batch

import (
	"context"
	"strings"

	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

// LakeConfig indicates S3 location of the lake
type LakeConfig struct {
	Region string
	Bucket string
	Prefix string
}

func (x LakeConfig) location(topic models.Topic, layer models.LakeLayer) models.LakeLocation {
	return models.LakeLocation{
		Region: x.Region,
		Bucket: x.Bucket,
		Prefix: x.Prefix,
		Topic:  topic,
		Layer:  layer,
	}
}

// AggregateObject returns S3 object of DailyAggregate of the topic.
func (x LakeConfig) AggregateObject(topic models.Topic) models.S3Object {
	return x.location(topic, models.LakeLayerBatch).S3Object()
}

// AggregateResult is summary of Aggregator.Run
type AggregateResult struct {
	Topic         models.Topic    `json:"topic"`
	Object        models.S3Object `json:"object"`
	SourceObjects int             `json:"source_objects"`
	SourceRows    int             `json:"source_rows"`
	Rows          int             `json:"rows"`
	// Written is false if lake was empty and aggregate was not overwritten.
	Written bool `json:"written"`
}

// Aggregator recomputes DailyAggregate from whole raw lake of a topic.
type Aggregator struct {
	lakeConfig   LakeConfig
	lake         *service.LakeService
	sqs          *service.SQSService
	sqsRegion    string
	loadQueueURL string
}

// NewAggregator is constructor of Aggregator.
func NewAggregator(cfg LakeConfig, lake *service.LakeService) *Aggregator {
	return &Aggregator{
		lakeConfig: cfg,
		lake:       lake,
	}
}

// EnableNotification sends LoadQueue to queueURL in region after overwrite.
// region is of the queue and can differ from region of the lake bucket.
func (x *Aggregator) EnableNotification(sqs *service.SQSService, region, queueURL string) {
	x.sqs = sqs
	x.sqsRegion = region
	x.loadQueueURL = queueURL
}

// Run reads all raw objects of topic, computes statistics and overwrites the
// aggregate object. The aggregate object is untouched on any error.
func (x *Aggregator) Run(ctx context.Context, topic models.Topic) (*AggregateResult, error) {
	streamLoc := x.lakeConfig.location(topic, models.LakeLayerStream)
	base := models.NewS3Object(x.lakeConfig.Region, x.lakeConfig.Bucket, streamLoc.TopicPrefix())
	result := &AggregateResult{
		Topic:  topic,
		Object: x.lakeConfig.AggregateObject(topic),
	}

	log := logger.WithFields(logrus.Fields{
		"topic": topic,
		"base":  base.Path(),
	})

	objects, err := x.lake.ListObjects(base)
	if err != nil {
		return nil, err
	}

	var rows []models.Record
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := models.ParseS3Key(obj.Key, x.lakeConfig.Prefix); err != nil {
			log.WithError(err).WithField("key", obj.Key).Warn("Skip unknown object in lake")
			continue
		}

		objRows, err := x.lake.ReadObject(topic, models.LakeLayerStream, obj)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read raw object: %s", obj.Path())
		}
		rows = append(rows, objRows...)
		result.SourceObjects++
	}
	result.SourceRows = len(rows)

	if len(rows) == 0 {
		log.Warn("No raw record in lake, aggregate is not overwritten")
		return result, nil
	}

	stats, err := aggregate(topic, rows)
	if err != nil {
		return nil, err
	}
	result.Rows = len(stats)

	if err := x.lake.WriteObject(topic, models.LakeLayerBatch, stats, result.Object); err != nil {
		return nil, errors.Wrap(err, "Failed to overwrite aggregate")
	}
	result.Written = true

	log.WithFields(logrus.Fields{
		"objects":    result.SourceObjects,
		"sourceRows": result.SourceRows,
		"rows":       result.Rows,
		"dst":        result.Object.Path(),
	}).Info("Overwrote daily aggregate")

	if x.sqs != nil && x.loadQueueURL != "" {
		q := models.LoadQueue{
			Topic:     topic,
			Aggregate: result.Object,
			RowCount:  result.Rows,
		}
		if err := x.sqs.SendSQS(q, x.sqsRegion, x.loadQueueURL); err != nil {
			return result, errors.Wrap(err, "Failed to send LoadQueue")
		}
	}

	return result, nil
}

// RunAll runs Run for each topic. Topics are independent: a failure of one
// topic is logged and the rest are still aggregated. Returned error covers all
// failed topics and results include every topic that produced a result.
func (x *Aggregator) RunAll(ctx context.Context, topics []models.Topic) ([]*AggregateResult, error) {
	var results []*AggregateResult
	var failed []string
	var firstErr error

	for _, topic := range topics {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := x.Run(ctx, topic)
		if result != nil {
			results = append(results, result)
			logger.WithFields(logrus.Fields{
				"topic":   result.Topic,
				"objects": result.SourceObjects,
				"rows":    result.Rows,
				"written": result.Written,
			}).Info("Aggregated")
		}
		if err != nil {
			err = errors.Wrapf(err, "Failed to aggregate %s", topic)
			internal.HandleErrorWithFields(err, logrus.Fields{"topic": topic})
			failed = append(failed, string(topic))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return results, errors.Wrapf(firstErr, "Aggregation failed for %d topic(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return results, nil
}
