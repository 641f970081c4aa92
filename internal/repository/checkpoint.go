package repository

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/guregu/dynamo"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
)

// CheckpointRepository is interface of durable offset marker store.
type CheckpointRepository interface {
	// GetCheckpoint returns nil without error if no checkpoint exists.
	GetCheckpoint(topic models.Topic, partition int) (*models.Checkpoint, error)
	// PutCheckpoint must return ErrCheckpointRegression if NextOffset is not
	// greater than stored one.
	PutCheckpoint(cp *models.Checkpoint) error
}

var (
	// ErrCheckpointRegression means a write that does not advance checkpoint
	ErrCheckpointRegression = fmt.Errorf("Checkpoint must advance monotonically")
)

const (
	defaultCheckpointKeyPrefix = "checkpoint/"
)

// CheckpointDynamoDB is implementation of CheckpointRepository for DynamoDB
type CheckpointDynamoDB struct {
	KeyPrefix string
	table     dynamo.Table
}

type checkpointItem struct {
	PK string `dynamo:"pk"`
	SK string `dynamo:"sk"`

	Topic      string `dynamo:"topic"`
	Partition  int    `dynamo:"partition"`
	NextOffset int64  `dynamo:"next_offset"`
	UpdatedAt  int64  `dynamo:"updated_at"`
}

// NewCheckpointDynamoDB is constructor of CheckpointDynamoDB
func NewCheckpointDynamoDB(region, tableName string) *CheckpointDynamoDB {
	db := dynamo.New(session.Must(session.NewSession()), &aws.Config{Region: aws.String(region)})
	table := db.Table(tableName)

	return &CheckpointDynamoDB{
		KeyPrefix: defaultCheckpointKeyPrefix,
		table:     table,
	}
}

func (x *CheckpointDynamoDB) checkpointPK(topic models.Topic) string {
	return x.KeyPrefix + string(topic)
}

// GetCheckpoint gets item by topic and partition
func (x *CheckpointDynamoDB) GetCheckpoint(topic models.Topic, partition int) (*models.Checkpoint, error) {
	var item checkpointItem
	query := x.table.
		Get("pk", x.checkpointPK(topic)).
		Range("sk", dynamo.Equal, strconv.Itoa(partition))

	if err := query.One(&item); err != nil {
		if err == dynamo.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "Failed to get checkpoint: %s/%d", topic, partition)
	}

	return &models.Checkpoint{
		Topic:      models.Topic(item.Topic),
		Partition:  item.Partition,
		NextOffset: item.NextOffset,
		UpdatedAt:  time.Unix(item.UpdatedAt, 0).UTC(),
	}, nil
}

// PutCheckpoint writes checkpoint only if it advances stored offset
func (x *CheckpointDynamoDB) PutCheckpoint(cp *models.Checkpoint) error {
	item := &checkpointItem{
		PK:         x.checkpointPK(cp.Topic),
		SK:         strconv.Itoa(cp.Partition),
		Topic:      string(cp.Topic),
		Partition:  cp.Partition,
		NextOffset: cp.NextOffset,
		UpdatedAt:  cp.UpdatedAt.Unix(),
	}

	query := x.table.Put(item).
		If("attribute_not_exists('pk') OR 'next_offset' < ?", cp.NextOffset)

	if err := query.Run(); err != nil {
		if isConditionalCheckErr(err) {
			return ErrCheckpointRegression
		}
		return errors.Wrapf(err, "Failed to put checkpoint: %v", *cp)
	}

	return nil
}
