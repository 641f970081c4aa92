package stream_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/envlake/internal/mock"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/m-mizutani/envlake/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRegion = "ap-southeast-1"
	testBucket = "envlake-test"
	testPrefix = "lake/"
)

type testEnv struct {
	s3         *mock.S3Client
	warehouse  *mock.WarehouseMockDB
	db         *mock.CheckpointMockDB
	checkpoint *service.CheckpointService
	committer  *stream.Committer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		s3:        mock.NewS3Client(),
		warehouse: mock.NewWarehouseMockDB(),
		db:        mock.NewCheckpointMockDB(),
	}
	env.checkpoint = service.NewCheckpointService(env.db)
	env.committer = stream.NewCommitter(stream.LakeConfig{
		Region: testRegion,
		Bucket: testBucket,
		Prefix: testPrefix,
	}, service.NewLakeService(env.s3.Factory()), env.warehouse, env.checkpoint)
	return env
}

func (x *testEnv) lakeKeys(topic models.Topic) []string {
	return x.s3.Keys(testBucket, testPrefix+string(topic)+"/stream/")
}

func weatherRecord(ts time.Time, temp float64, offset int64) *models.EnrichedRecord {
	return &models.EnrichedRecord{
		FlatRecord: models.FlatRecord{
			TimestampUnix: ts.Unix(),
			Coord:         models.Coord{Longitude: 105.85, Latitude: 21.03},
			Metrics:       &models.WeatherMetrics{Temperature: &temp},
			IngestedAt:    ts,
		},
		City:      models.CityHanoi,
		Timestamp: ts.UTC(),
		Offset:    offset,
	}
}

func TestCommitterWritesSinksThenCheckpoint(t *testing.T) {
	env := newTestEnv()
	day1 := time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 16, 1, 0, 0, 0, time.UTC)

	batch := &models.MicroBatch{
		Topic:       models.TopicWeather,
		FirstOffset: 10,
		LastOffset:  12,
		Records: []*models.EnrichedRecord{
			weatherRecord(day1, 20, 10),
			weatherRecord(day2, 30, 11),
			weatherRecord(day1, 25, 12),
		},
	}

	require.NoError(t, env.committer.Commit(context.Background(), batch))

	keys := env.lakeKeys(models.TopicWeather)
	require.Equal(t, 2, len(keys))
	assert.True(t, strings.HasPrefix(keys[0], "lake/weather_data/stream/dt=2024-01-15/10-12."))
	assert.True(t, strings.HasPrefix(keys[1], "lake/weather_data/stream/dt=2024-01-16/10-12."))

	rows := env.warehouse.Rows("weather_final")
	require.Equal(t, 3, len(rows))
	assert.Equal(t, int64(10), rows[0].(*models.WeatherRow).Offset)

	cp, err := env.db.GetCheckpoint(models.TopicWeather, 0)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(13), cp.NextOffset)
}

func TestCommitterLakeFailure(t *testing.T) {
	env := newTestEnv()
	env.s3.PutErr = fmt.Errorf("s3 is down")

	batch := &models.MicroBatch{
		Topic:       models.TopicWeather,
		FirstOffset: 0,
		LastOffset:  0,
		Records:     []*models.EnrichedRecord{weatherRecord(time.Now(), 20, 0)},
	}

	require.Error(t, env.committer.Commit(context.Background(), batch))
	assert.Equal(t, 0, len(env.warehouse.Rows("weather_final")))
	assert.Equal(t, 0, len(env.db.History()))
}

func TestCommitterRelationalFailure(t *testing.T) {
	env := newTestEnv()
	env.warehouse.AppendErr = fmt.Errorf("db is down")

	batch := &models.MicroBatch{
		Topic:       models.TopicWeather,
		FirstOffset: 0,
		LastOffset:  0,
		Records:     []*models.EnrichedRecord{weatherRecord(time.Now(), 20, 0)},
	}

	require.Error(t, env.committer.Commit(context.Background(), batch))
	// Lake already received the attempt. It is not rolled back.
	assert.Equal(t, 1, len(env.lakeKeys(models.TopicWeather)))
	assert.Equal(t, 0, len(env.db.History()))

	t.Run("retry writes a new lake object", func(tt *testing.T) {
		env.warehouse.AppendErr = nil
		require.NoError(tt, env.committer.Commit(context.Background(), batch))
		assert.Equal(tt, 2, len(env.lakeKeys(models.TopicWeather)))
		assert.Equal(tt, 1, len(env.warehouse.Rows("weather_final")))
		assert.Equal(tt, 1, len(env.db.History()))
	})
}

func TestCommitterCheckpointFailure(t *testing.T) {
	env := newTestEnv()
	env.db.PutErr = fmt.Errorf("dynamodb is down")

	batch := &models.MicroBatch{
		Topic:   models.TopicWeather,
		Records: []*models.EnrichedRecord{weatherRecord(time.Now(), 20, 0)},
	}
	require.Error(t, env.committer.Commit(context.Background(), batch))
	_, ok, err := env.checkpoint.Load(models.TopicWeather, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitterOnlyDroppedMessages(t *testing.T) {
	env := newTestEnv()
	batch := &models.MicroBatch{
		Topic:       models.TopicAirQuality,
		FirstOffset: 3,
		LastOffset:  4,
		Dropped:     2,
	}

	require.NoError(t, env.committer.Commit(context.Background(), batch))
	assert.Equal(t, 0, len(env.lakeKeys(models.TopicAirQuality)))
	assert.Equal(t, 0, len(env.warehouse.Rows("air_quality_final")))

	offset, ok, err := env.checkpoint.Load(models.TopicAirQuality, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), offset)
}
