package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i32(v int32) *int32     { return &v }

func TestToCopyRows(t *testing.T) {
	t.Run("weather rows", func(tt *testing.T) {
		ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
		rows := []models.Record{
			&models.WeatherRow{
				TimestampUnix: ts.Unix(),
				Timestamp:     ts.UnixMilli(),
				IngestedAt:    ts.Add(time.Second).UnixMilli(),
				Longitude:     105.8,
				Latitude:      21.0,
				City:          "Hanoi",
				Offset:        3,
				Temperature:   f64(25.5),
				Humidity:      i32(80),
			},
		}

		cols, values, err := toCopyRows(rows)
		require.NoError(tt, err)
		assert.Equal(tt, weatherRowColumns, cols)
		require.Equal(tt, 1, len(values))
		require.Equal(tt, len(cols), len(values[0]))
		assert.Equal(tt, ts.Unix(), values[0][0])
		assert.Equal(tt, ts, values[0][1])
		assert.Equal(tt, "Hanoi", values[0][5])
		assert.Nil(tt, values[0][8].(*float64))
	})

	t.Run("stats with date", func(tt *testing.T) {
		rows := []models.Record{
			&models.AirQualityDailyStat{Date: "2024-01-15", City: "HCM", AvgAQI: f64(3), RecordCount: 2},
		}
		cols, values, err := toCopyRows(rows)
		require.NoError(tt, err)
		assert.Equal(tt, airQualityStatColumns, cols)
		assert.Equal(tt, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), values[0][0])
		assert.Equal(tt, int64(2), values[0][len(cols)-1])
	})

	t.Run("invalid date", func(tt *testing.T) {
		_, _, err := toCopyRows([]models.Record{&models.WeatherDailyStat{Date: "15/01/2024"}})
		assert.Error(tt, err)
	})

	t.Run("mixed types are rejected", func(tt *testing.T) {
		_, _, err := toCopyRows([]models.Record{&models.WeatherRow{}, &models.AirQualityRow{}})
		assert.Error(tt, err)
	})

	t.Run("empty", func(tt *testing.T) {
		cols, values, err := toCopyRows(nil)
		require.NoError(tt, err)
		assert.Nil(tt, cols)
		assert.Nil(tt, values)
	})
}

func TestTableIdentifier(t *testing.T) {
	assert.Equal(t, `"public"."weather_final"`, tableIdentifier("public.weather_final").Sanitize())
	assert.Equal(t, `"weather_final"`, tableIdentifier("weather_final").Sanitize())
}

func TestWarehousePostgres(t *testing.T) {
	dsn := os.Getenv("ENVLAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ENVLAKE_TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	repo, err := NewWarehousePostgres(ctx, dsn)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Migrate(ctx))

	table := models.TopicWeather.ServingTable()
	stats := []models.Record{
		&models.WeatherDailyStat{Date: "2024-01-15", City: "Hanoi", AvgTemperature: f64(25), RecordCount: 2},
		&models.WeatherDailyStat{Date: "2024-01-15", City: "HCM", AvgTemperature: f64(31), RecordCount: 1},
	}

	t.Run("truncate and insert twice keeps row count", func(tt *testing.T) {
		for i := 0; i < 2; i++ {
			require.NoError(tt, repo.Truncate(ctx, table))
			n, err := repo.InsertStats(ctx, table, stats)
			require.NoError(tt, err)
			assert.Equal(tt, int64(2), n)
		}

		count, err := repo.CountRows(ctx, table)
		require.NoError(tt, err)
		assert.Equal(tt, int64(2), count)
	})

	t.Run("append speed rows", func(tt *testing.T) {
		speed := models.TopicWeather.SpeedTable()
		before, err := repo.CountRows(ctx, speed)
		require.NoError(tt, err)

		now := time.Now().UTC()
		n, err := repo.AppendRecords(ctx, speed, []models.Record{
			&models.WeatherRow{TimestampUnix: now.Unix(), Timestamp: now.UnixMilli(), IngestedAt: now.UnixMilli(), City: "Unknown"},
		})
		require.NoError(tt, err)
		assert.Equal(tt, int64(1), n)

		after, err := repo.CountRows(ctx, speed)
		require.NoError(tt, err)
		assert.Equal(tt, before+1, after)
	})
}
