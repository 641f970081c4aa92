package batch

import (
	"context"
	"fmt"

	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrAggregateNotFound means aggregate object does not exist yet.
var ErrAggregateNotFound = fmt.Errorf("Aggregate object not found")

const maxSampleRows = 10

// LoadResult is summary of Loader.Load
type LoadResult struct {
	Topic    models.Topic `json:"topic"`
	Table    string       `json:"table"`
	Expected int          `json:"expected"`
	Inserted int64        `json:"inserted"`
	Count    int64        `json:"count"`
	Matched  bool         `json:"matched"`
}

// Loader replaces serving table by aggregate object.
type Loader struct {
	lakeConfig LakeConfig
	lake       *service.LakeService
	serving    repository.ServingRepository
}

// NewLoader is constructor of Loader
func NewLoader(cfg LakeConfig, lake *service.LakeService, serving repository.ServingRepository) *Loader {
	return &Loader{
		lakeConfig: cfg,
		lake:       lake,
		serving:    serving,
	}
}

// Load reloads serving table of topic from default aggregate object.
func (x *Loader) Load(ctx context.Context, topic models.Topic) (*LoadResult, error) {
	return x.LoadObject(ctx, topic, x.lakeConfig.AggregateObject(topic))
}

// LoadObject truncates serving table and inserts all rows of src. Readers of
// the table can observe empty or partial table until insert completes.
func (x *Loader) LoadObject(ctx context.Context, topic models.Topic, src models.S3Object) (*LoadResult, error) {
	result := &LoadResult{
		Topic: topic,
		Table: topic.ServingTable(),
	}
	if result.Table == "" {
		return nil, fmt.Errorf("Unsupported topic: %s", topic)
	}

	log := logger.WithFields(logrus.Fields{
		"topic": topic,
		"src":   src.Path(),
		"table": result.Table,
	})

	stats, err := x.lake.ReadObject(topic, models.LakeLayerBatch, src)
	if err != nil {
		if err == service.ErrObjectNotFound {
			return nil, errors.Wrap(ErrAggregateNotFound, src.Path())
		}
		return nil, err
	}
	result.Expected = len(stats)

	if err := x.serving.Truncate(ctx, result.Table); err != nil {
		return nil, errors.Wrap(err, "Abort loading")
	}

	if result.Inserted, err = x.serving.InsertStats(ctx, result.Table, stats); err != nil {
		return nil, err
	}

	if result.Count, err = x.serving.CountRows(ctx, result.Table); err != nil {
		return nil, err
	}

	result.Matched = result.Count == int64(result.Expected)
	if !result.Matched {
		log.WithFields(logrus.Fields{
			"expected": result.Expected,
			"count":    result.Count,
		}).Warn("Row count of serving table does not match aggregate")
	} else {
		log.WithField("count", result.Count).Info("Loaded serving table")
	}

	for i := 0; i < len(stats) && i < maxSampleRows; i++ {
		log.WithField("row", stats[i]).Debug("Sample")
	}

	return result, nil
}
