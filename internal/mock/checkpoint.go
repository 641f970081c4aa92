package mock

import (
	"fmt"
	"sync"

	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/pkg/models"
)

// CheckpointMockDB is mock of CheckpointDynamoDB
type CheckpointMockDB struct {
	// PutErr is returned by PutCheckpoint if set
	PutErr error

	mutex   sync.Mutex
	data    map[string]models.Checkpoint
	history []models.Checkpoint
	getErrs map[models.Topic]error
}

// NewCheckpointMockDB is constructor of CheckpointMockDB
func NewCheckpointMockDB() *CheckpointMockDB {
	return &CheckpointMockDB{
		data:    map[string]models.Checkpoint{},
		getErrs: map[models.Topic]error{},
	}
}

// SetGetErr makes GetCheckpoint of topic fail with err. nil clears it.
func (x *CheckpointMockDB) SetGetErr(topic models.Topic, err error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if err == nil {
		delete(x.getErrs, topic)
		return
	}
	x.getErrs[topic] = err
}

func checkpointKey(topic models.Topic, partition int) string {
	return fmt.Sprintf("%s/%d", topic, partition)
}

// GetCheckpoint returns stored checkpoint or nil
func (x *CheckpointMockDB) GetCheckpoint(topic models.Topic, partition int) (*models.Checkpoint, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if err := x.getErrs[topic]; err != nil {
		return nil, err
	}

	cp, ok := x.data[checkpointKey(topic, partition)]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// PutCheckpoint stores checkpoint if it advances
func (x *CheckpointMockDB) PutCheckpoint(cp *models.Checkpoint) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.PutErr != nil {
		return x.PutErr
	}

	key := checkpointKey(cp.Topic, cp.Partition)
	if old, ok := x.data[key]; ok && cp.NextOffset <= old.NextOffset {
		return repository.ErrCheckpointRegression
	}

	x.data[key] = *cp
	x.history = append(x.history, *cp)
	return nil
}

// History returns all accepted checkpoints in order
func (x *CheckpointMockDB) History() []models.Checkpoint {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]models.Checkpoint{}, x.history...)
}
