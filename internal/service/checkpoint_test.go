package service_test

import (
	"testing"

	"github.com/m-mizutani/envlake/internal/mock"
	"github.com/m-mizutani/envlake/internal/repository"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointService(t *testing.T) {
	db := mock.NewCheckpointMockDB()
	svc := service.NewCheckpointService(db)

	_, ok, err := svc.Load(models.TopicWeather, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.Advance(models.TopicWeather, 0, 5))
	require.NoError(t, svc.Advance(models.TopicWeather, 0, 8))

	offset, ok, err := svc.Load(models.TopicWeather, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(8), offset)

	t.Run("regression is rejected", func(tt *testing.T) {
		err := svc.Advance(models.TopicWeather, 0, 8)
		require.Error(tt, err)
		assert.Equal(tt, repository.ErrCheckpointRegression, errors.Cause(err))

		offset, _, err := svc.Load(models.TopicWeather, 0)
		require.NoError(tt, err)
		assert.Equal(tt, int64(8), offset)
	})

	t.Run("topics are independent", func(tt *testing.T) {
		require.NoError(tt, svc.Advance(models.TopicAirQuality, 0, 1))
		assert.Equal(tt, 3, len(db.History()))
	})
}
