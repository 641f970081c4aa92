package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/envlake/internal/mock"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/internal/testutil"
	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loader "github.com/m-mizutani/envlake/lambda/loader"
)

func f64(v float64) *float64 { return &v }

type testEnv struct {
	s3        *mock.S3Client
	sqs       *mock.SQSClient
	warehouse *mock.WarehouseMockDB
	args      *handler.Arguments
}

func newTestEnv() *testEnv {
	env := &testEnv{
		s3:        mock.NewS3Client(),
		sqs:       mock.NewSQSClient(),
		warehouse: mock.NewWarehouseMockDB(),
	}
	env.args = &handler.Arguments{
		Config: handler.Config{
			AwsRegion:    "ap-southeast-1",
			S3Bucket:     "envlake-test",
			S3Prefix:     "lake/",
			LoadQueueURL: "https://sqs.ap-southeast-1.amazonaws.com/123456789012/load-queue",
		},
		NewS3:     env.s3.Factory(),
		NewSQS:    env.sqs.Factory(),
		Warehouse: env.warehouse,
	}
	return env
}

func (x *testEnv) putWeather(t *testing.T, ts time.Time, city string, temp float64) {
	loc := models.LakeLocation{
		Region:       "ap-southeast-1",
		Bucket:       "envlake-test",
		Prefix:       "lake/",
		Topic:        models.TopicWeather,
		Layer:        models.LakeLayerStream,
		Date:         ts,
		FileNameSalt: ts.String() + city,
	}
	row := &models.WeatherRow{
		TimestampUnix: ts.Unix(),
		Timestamp:     ts.UnixMilli(),
		IngestedAt:    ts.UnixMilli(),
		City:          city,
		Temperature:   f64(temp),
	}
	lake := service.NewLakeService(x.s3.Factory())
	require.NoError(t, lake.WriteObject(models.TopicWeather, models.LakeLayerStream, []models.Record{row}, loc.S3Object()))
}

func TestLoader(t *testing.T) {
	t.Run("load aggregate notified by aggregator", func(tt *testing.T) {
		env := newTestEnv()
		env.putWeather(tt, time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), "Hanoi", 31)
		env.putWeather(tt, time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC), "DaNang", 29)
		env.putWeather(tt, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), "Hanoi", 33)

		aggregator, err := env.args.Aggregator()
		require.NoError(tt, err)
		_, err = aggregator.Run(context.Background(), models.TopicWeather)
		require.NoError(tt, err)
		require.Equal(tt, 1, len(env.sqs.Input))

		env.args.Event = testutil.RelaySQS(env.sqs.Input)
		require.NoError(tt, loader.Handler(context.Background(), env.args))

		assert.Equal(tt, []string{"weather_daily_stats"}, env.warehouse.Truncated())
		rows := env.warehouse.Rows("weather_daily_stats")
		require.Equal(tt, 3, len(rows))
		cities := map[string]int{}
		for _, row := range rows {
			cities[row.(*models.WeatherDailyStat).City]++
		}
		assert.Equal(tt, 2, cities["Hanoi"])
		assert.Equal(tt, 1, cities["DaNang"])

		tt.Run("redelivered message keeps one copy", func(ttt *testing.T) {
			require.NoError(ttt, loader.Handler(context.Background(), env.args))
			assert.Equal(ttt, 3, len(env.warehouse.Rows("weather_daily_stats")))
		})
	})

	t.Run("missing aggregate", func(tt *testing.T) {
		env := newTestEnv()
		env.args.Event = testutil.EncapBySQS(models.LoadQueue{
			Topic:     models.TopicAirQuality,
			Aggregate: models.NewS3Object("ap-southeast-1", "envlake-test", "lake/air_quality_data/batch/daily_stats/part-00000.parquet"),
		})
		assert.Error(tt, loader.Handler(context.Background(), env.args))
		assert.Equal(tt, 0, len(env.warehouse.Truncated()))
	})

	t.Run("broken message", func(tt *testing.T) {
		env := newTestEnv()
		env.args.Event = testutil.EncapBySQS("not a queue")
		assert.Error(tt, loader.Handler(context.Background(), env.args))
	})

	t.Run("no record", func(tt *testing.T) {
		env := newTestEnv()
		env.args.Warehouse = nil
		env.args.Event = testutil.EncapBySQS()
		// PostgreSQL is not connected if there is nothing to load
		assert.NoError(tt, loader.Handler(context.Background(), env.args))
	})
}
