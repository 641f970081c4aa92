package service

import (
	"time"

	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CheckpointService manages per topic-partition checkpoint.
type CheckpointService struct {
	repo repository.CheckpointRepository
	now  func() time.Time
}

// NewCheckpointService is constructor of CheckpointService
func NewCheckpointService(repo repository.CheckpointRepository) *CheckpointService {
	return &CheckpointService{
		repo: repo,
		now:  time.Now,
	}
}

// Load returns next offset to fetch. ok is false if no checkpoint exists.
func (x *CheckpointService) Load(topic models.Topic, partition int) (offset int64, ok bool, err error) {
	cp, err := x.repo.GetCheckpoint(topic, partition)
	if err != nil {
		return 0, false, err
	}
	if cp == nil {
		return 0, false, nil
	}

	logger.WithFields(logrus.Fields{
		"topic":      topic,
		"partition":  partition,
		"nextOffset": cp.NextOffset,
		"updatedAt":  cp.UpdatedAt,
	}).Info("Loaded checkpoint")

	return cp.NextOffset, true, nil
}

// Advance saves nextOffset as checkpoint. It fails if nextOffset does not
// advance stored one.
func (x *CheckpointService) Advance(topic models.Topic, partition int, nextOffset int64) error {
	cp := &models.Checkpoint{
		Topic:      topic,
		Partition:  partition,
		NextOffset: nextOffset,
		UpdatedAt:  x.now().UTC(),
	}

	if err := x.repo.PutCheckpoint(cp); err != nil {
		if err == repository.ErrCheckpointRegression {
			return errors.Wrapf(err, "Checkpoint %s/%d must be greater than stored one: %d", topic, partition, nextOffset)
		}
		return err
	}

	return nil
}
