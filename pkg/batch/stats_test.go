package batch

import (
	"testing"
	"time"

	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i32(v int32) *int32     { return &v }

func weatherRow(ts time.Time, city string, temp *float64, humidity *int32) *models.WeatherRow {
	return &models.WeatherRow{
		TimestampUnix: ts.Unix(),
		Timestamp:     ts.UnixMilli(),
		City:          city,
		Temperature:   temp,
		Humidity:      humidity,
	}
}

func TestAggregateWeather(t *testing.T) {
	day := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	rows := []models.Record{
		weatherRow(day, "Hanoi", f64(20), i32(70)),
		weatherRow(day.Add(time.Hour), "Hanoi", f64(30), nil),
		weatherRow(day, "HCM", nil, nil),
		weatherRow(day.Add(-9*time.Hour), "Hanoi", f64(15), nil),
	}

	stats, err := aggregateWeather(rows)
	require.NoError(t, err)
	require.Equal(t, 3, len(stats))

	s0 := stats[0].(*models.WeatherDailyStat)
	assert.Equal(t, "2024-01-14", s0.Date)
	assert.Equal(t, "Hanoi", s0.City)
	assert.Equal(t, int64(1), s0.RecordCount)

	s1 := stats[1].(*models.WeatherDailyStat)
	assert.Equal(t, "2024-01-15", s1.Date)
	assert.Equal(t, "HCM", s1.City)
	assert.Nil(t, s1.AvgTemperature)
	assert.Equal(t, int64(1), s1.RecordCount)

	s2 := stats[2].(*models.WeatherDailyStat)
	assert.Equal(t, "Hanoi", s2.City)
	assert.Equal(t, 25.0, *s2.AvgTemperature)
	assert.Equal(t, 20.0, *s2.MinTemperature)
	assert.Equal(t, 30.0, *s2.MaxTemperature)
	assert.Equal(t, 70.0, *s2.AvgHumidity)
	assert.Nil(t, s2.AvgPressure)
	assert.Equal(t, int64(2), s2.RecordCount)
}

func TestAggregateAirQuality(t *testing.T) {
	ts := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC).Unix()
	rows := []models.Record{
		&models.AirQualityRow{TimestampUnix: ts, City: "Hanoi", AQI: i32(4), PM25: f64(180)},
		&models.AirQualityRow{TimestampUnix: ts, City: "Hanoi", AQI: i32(2), PM25: f64(20), CO: f64(1)},
	}

	stats, err := aggregateAirQuality(rows)
	require.NoError(t, err)
	require.Equal(t, 1, len(stats))

	s := stats[0].(*models.AirQualityDailyStat)
	assert.Equal(t, 3.0, *s.AvgAQI)
	assert.Equal(t, 4.0, *s.MaxAQI)
	assert.Equal(t, 100.0, *s.AvgPM25)
	assert.Equal(t, 180.0, *s.MaxPM25)
	assert.Equal(t, 1.0, *s.AvgCO)
	assert.Nil(t, s.AvgNH3)
	assert.Equal(t, int64(2), s.RecordCount)
}

func TestAggregateRejectsWrongRowType(t *testing.T) {
	_, err := aggregate(models.TopicWeather, []models.Record{&models.AirQualityRow{}})
	assert.Error(t, err)
	_, err = aggregate(models.Topic("x"), nil)
	assert.Error(t, err)
}
