package repository_test

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointDynamoDB(t *testing.T) {
	region, table := os.Getenv("ENVLAKE_TEST_REGION"), os.Getenv("ENVLAKE_TEST_TABLE")
	if region == "" || table == "" {
		t.Skip("ENVLAKE_TEST_REGION or ENVLAKE_TEST_TABLE is not set")
	}

	repo := repository.NewCheckpointDynamoDB(region, table)
	repo.KeyPrefix = "test/" + uuid.New().String() + "/"

	cp, err := repo.GetCheckpoint(models.TopicWeather, 0)
	require.NoError(t, err)
	assert.Nil(t, cp)

	require.NoError(t, repo.PutCheckpoint(&models.Checkpoint{
		Topic: models.TopicWeather, Partition: 0, NextOffset: 10, UpdatedAt: time.Now(),
	}))

	cp, err = repo.GetCheckpoint(models.TopicWeather, 0)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(10), cp.NextOffset)

	t.Run("same offset is rejected", func(tt *testing.T) {
		err := repo.PutCheckpoint(&models.Checkpoint{Topic: models.TopicWeather, NextOffset: 10, UpdatedAt: time.Now()})
		assert.Equal(tt, repository.ErrCheckpointRegression, err)
	})

	t.Run("other partition is independent", func(tt *testing.T) {
		cp, err := repo.GetCheckpoint(models.TopicWeather, 1)
		require.NoError(tt, err)
		assert.Nil(tt, cp)
	})
}
