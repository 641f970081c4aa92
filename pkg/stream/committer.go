package stream

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BatchCommitter persists MicroBatch and advances checkpoint.
type BatchCommitter interface {
	Commit(ctx context.Context, batch *models.MicroBatch) error
}

// LakeConfig indicates destination of raw lake objects
type LakeConfig struct {
	Region string
	Bucket string
	Prefix string
}

// Committer writes MicroBatch to lake and relational store, then advances
// checkpoint only if both succeeded.
type Committer struct {
	lakeConfig LakeConfig
	lake       *service.LakeService
	records    repository.RecordRepository
	checkpoint *service.CheckpointService
	newSalt    func() string
}

// NewCommitter is constructor of Committer
func NewCommitter(cfg LakeConfig, lake *service.LakeService, records repository.RecordRepository, checkpoint *service.CheckpointService) *Committer {
	return &Committer{
		lakeConfig: cfg,
		lake:       lake,
		records:    records,
		checkpoint: checkpoint,
		newSalt:    func() string { return uuid.New().String() },
	}
}

type datePartition struct {
	date time.Time
	rows []models.Record
}

// splitByDate groups rows by UTC date of the measurement, ordered by date.
func splitByDate(records []*models.EnrichedRecord, rows []models.Record) []*datePartition {
	partMap := map[string]*datePartition{}
	var keys []string

	for i, rec := range records {
		ts := rec.Timestamp.UTC()
		key := ts.Format(models.DateFormat)
		p, ok := partMap[key]
		if !ok {
			p = &datePartition{date: time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)}
			partMap[key] = p
			keys = append(keys, key)
		}
		p.rows = append(p.rows, rows[i])
	}

	sort.Strings(keys)
	parts := make([]*datePartition, len(keys))
	for i, key := range keys {
		parts[i] = partMap[key]
	}
	return parts
}

// Commit runs lake write, relational write and checkpoint update in order.
// Any error stops the sequence without advancing checkpoint. Retrying the
// same batch writes new lake objects and duplicated rows.
func (x *Committer) Commit(ctx context.Context, batch *models.MicroBatch) error {
	rows, err := models.NewRecords(batch.Records)
	if err != nil {
		return err
	}

	log := logger.WithFields(logrus.Fields{
		"topic":       batch.Topic,
		"partition":   batch.Partition,
		"firstOffset": batch.FirstOffset,
		"lastOffset":  batch.LastOffset,
		"records":     len(rows),
	})

	if len(rows) > 0 {
		for _, part := range splitByDate(batch.Records, rows) {
			loc := models.LakeLocation{
				Region:       x.lakeConfig.Region,
				Bucket:       x.lakeConfig.Bucket,
				Prefix:       x.lakeConfig.Prefix,
				Topic:        batch.Topic,
				Layer:        models.LakeLayerStream,
				Date:         part.date,
				FirstOffset:  batch.FirstOffset,
				LastOffset:   batch.LastOffset,
				FileNameSalt: x.newSalt(),
			}

			if err := x.lake.WriteObject(batch.Topic, models.LakeLayerStream, part.rows, loc.S3Object()); err != nil {
				return errors.Wrap(err, "Failed to write lake")
			}
		}

		if _, err := x.records.AppendRecords(ctx, batch.Topic.SpeedTable(), rows); err != nil {
			return errors.Wrap(err, "Failed to append records")
		}
	}

	if err := x.checkpoint.Advance(batch.Topic, batch.Partition, batch.NextOffset()); err != nil {
		return errors.Wrap(err, "Failed to advance checkpoint")
	}

	log.WithField("dropped", batch.Dropped).Info("Committed micro batch")
	return nil
}
