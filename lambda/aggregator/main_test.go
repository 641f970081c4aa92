package main_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/m-mizutani/envlake/internal/mock"
	"github.com/m-mizutani/envlake/internal/service"
	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aggregator "github.com/m-mizutani/envlake/lambda/aggregator"
)

func f64(v float64) *float64 { return &v }

func newArguments(s3Client *mock.S3Client, sqsClient *mock.SQSClient) *handler.Arguments {
	return &handler.Arguments{
		Config: handler.Config{
			AwsRegion:    "ap-southeast-1",
			S3Bucket:     "envlake-test",
			S3Prefix:     "lake/",
			LoadQueueURL: "https://sqs.ap-southeast-1.amazonaws.com/123456789012/load-queue",
		},
		NewS3:  s3Client.Factory(),
		NewSQS: sqsClient.Factory(),
	}
}

func putAirQuality(t *testing.T, s3Client *mock.S3Client, ts time.Time, pm25 float64) {
	loc := models.LakeLocation{
		Region:       "ap-southeast-1",
		Bucket:       "envlake-test",
		Prefix:       "lake/",
		Topic:        models.TopicAirQuality,
		Layer:        models.LakeLayerStream,
		Date:         ts,
		FirstOffset:  0,
		LastOffset:   0,
		FileNameSalt: ts.String(),
	}
	row := &models.AirQualityRow{
		TimestampUnix: ts.Unix(),
		Timestamp:     ts.UnixMilli(),
		IngestedAt:    ts.UnixMilli(),
		Longitude:     106.7,
		Latitude:      10.8,
		City:          "HCM",
		PM25:          f64(pm25),
	}
	lake := service.NewLakeService(s3Client.Factory())
	require.NoError(t, lake.WriteObject(models.TopicAirQuality, models.LakeLayerStream, []models.Record{row}, loc.S3Object()))
}

func TestAggregator(t *testing.T) {
	t.Run("scheduled event aggregates all topics", func(tt *testing.T) {
		s3Client := mock.NewS3Client()
		sqsClient := mock.NewSQSClient()
		putAirQuality(tt, s3Client, time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), 40)
		putAirQuality(tt, s3Client, time.Date(2024, 3, 1, 2, 0, 0, 0, time.UTC), 60)

		args := newArguments(s3Client, sqsClient)
		args.Event = map[string]interface{}{"source": "aws.events", "detail-type": "Scheduled Event"}
		require.NoError(tt, aggregator.Handler(context.Background(), args))

		keys := s3Client.Keys("envlake-test", "lake/air_quality_data/batch/")
		require.Equal(tt, 1, len(keys))
		assert.Equal(tt, "lake/air_quality_data/batch/daily_stats/part-00000.parquet", keys[0])
		// weather lake is empty, so it is not written and not notified
		assert.Equal(tt, 0, len(s3Client.Keys("envlake-test", "lake/weather_data/batch/")))

		require.Equal(tt, 1, len(sqsClient.Input))
		var q models.LoadQueue
		require.NoError(tt, json.Unmarshal([]byte(*sqsClient.Input[0].MessageBody), &q))
		assert.Equal(tt, models.TopicAirQuality, q.Topic)
		assert.Equal(tt, keys[0], q.Aggregate.Key)
		assert.Equal(tt, 1, q.RowCount)
	})

	t.Run("topics in event", func(tt *testing.T) {
		s3Client := mock.NewS3Client()
		sqsClient := mock.NewSQSClient()
		putAirQuality(tt, s3Client, time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), 40)

		args := newArguments(s3Client, sqsClient)
		args.Event = aggregator.Event{Topics: []string{"weather_data"}}
		require.NoError(tt, aggregator.Handler(context.Background(), args))
		assert.Equal(tt, 0, len(s3Client.Keys("envlake-test", "lake/air_quality_data/batch/")))
		assert.Equal(tt, 0, len(sqsClient.Input))
	})

	t.Run("failure of a topic does not block others", func(tt *testing.T) {
		s3Client := mock.NewS3Client()
		sqsClient := mock.NewSQSClient()
		s3Client.Put("envlake-test", "lake/weather_data/stream/dt=2024-03-01/0-0.parquet", []byte("broken"))
		putAirQuality(tt, s3Client, time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC), 40)

		args := newArguments(s3Client, sqsClient)
		args.Event = aggregator.Event{Topics: []string{"weather_data", "air_quality_data"}}
		err := aggregator.Handler(context.Background(), args)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "weather_data")

		assert.Equal(tt, 1, len(s3Client.Keys("envlake-test", "lake/air_quality_data/batch/")))
		require.Equal(tt, 1, len(sqsClient.Input))
		var q models.LoadQueue
		require.NoError(tt, json.Unmarshal([]byte(*sqsClient.Input[0].MessageBody), &q))
		assert.Equal(tt, models.TopicAirQuality, q.Topic)
	})

	t.Run("unknown topic", func(tt *testing.T) {
		args := newArguments(mock.NewS3Client(), mock.NewSQSClient())
		args.Event = aggregator.Event{Topics: []string{"traffic_data"}}
		assert.Error(tt, aggregator.Handler(context.Background(), args))
	})
}
