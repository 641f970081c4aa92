package models

import (
	"fmt"
	"time"
)

// Record is interface of WeatherRow and AirQualityRow
type Record interface{}

// WeatherRow is lake and speed-table representation of weather EnrichedRecord.
type WeatherRow struct {
	// TimestampUnix is unixtime (second) of original measurement.
	TimestampUnix int64 `parquet:"name=timestamp_unix, type=INT64" json:"timestamp_unix"`
	// Timestamp and IngestedAt are unixtime in millisecond.
	Timestamp  int64   `parquet:"name=timestamp, type=INT64" json:"timestamp"`
	IngestedAt int64   `parquet:"name=ingested_at, type=INT64" json:"ingested_at"`
	Longitude  float64 `parquet:"name=longitude, type=DOUBLE" json:"longitude"`
	Latitude   float64 `parquet:"name=latitude, type=DOUBLE" json:"latitude"`
	City       string  `parquet:"name=city, type=UTF8, encoding=PLAIN_DICTIONARY" json:"city"`
	Offset     int64   `parquet:"name=offset, type=INT64" json:"offset"`

	Temperature *float64 `parquet:"name=temperature, type=DOUBLE, repetitiontype=OPTIONAL" json:"temperature"`
	FeelsLike   *float64 `parquet:"name=feels_like, type=DOUBLE, repetitiontype=OPTIONAL" json:"feels_like"`
	Humidity    *int32   `parquet:"name=humidity, type=INT32, repetitiontype=OPTIONAL" json:"humidity"`
	Pressure    *int32   `parquet:"name=pressure, type=INT32, repetitiontype=OPTIONAL" json:"pressure"`
}

// AirQualityRow is lake and speed-table representation of air quality EnrichedRecord.
type AirQualityRow struct {
	TimestampUnix int64   `parquet:"name=timestamp_unix, type=INT64" json:"timestamp_unix"`
	Timestamp     int64   `parquet:"name=timestamp, type=INT64" json:"timestamp"`
	IngestedAt    int64   `parquet:"name=ingested_at, type=INT64" json:"ingested_at"`
	Longitude     float64 `parquet:"name=longitude, type=DOUBLE" json:"longitude"`
	Latitude      float64 `parquet:"name=latitude, type=DOUBLE" json:"latitude"`
	City          string  `parquet:"name=city, type=UTF8, encoding=PLAIN_DICTIONARY" json:"city"`
	Offset        int64   `parquet:"name=offset, type=INT64" json:"offset"`

	AQI  *int32   `parquet:"name=aqi, type=INT32, repetitiontype=OPTIONAL" json:"aqi"`
	CO   *float64 `parquet:"name=co, type=DOUBLE, repetitiontype=OPTIONAL" json:"co"`
	NO   *float64 `parquet:"name=no, type=DOUBLE, repetitiontype=OPTIONAL" json:"no"`
	NO2  *float64 `parquet:"name=no2, type=DOUBLE, repetitiontype=OPTIONAL" json:"no2"`
	O3   *float64 `parquet:"name=o3, type=DOUBLE, repetitiontype=OPTIONAL" json:"o3"`
	SO2  *float64 `parquet:"name=so2, type=DOUBLE, repetitiontype=OPTIONAL" json:"so2"`
	PM25 *float64 `parquet:"name=pm2_5, type=DOUBLE, repetitiontype=OPTIONAL" json:"pm2_5"`
	PM10 *float64 `parquet:"name=pm10, type=DOUBLE, repetitiontype=OPTIONAL" json:"pm10"`
	NH3  *float64 `parquet:"name=nh3, type=DOUBLE, repetitiontype=OPTIONAL" json:"nh3"`
}

// Date returns UTC date of the measurement as "2006-01-02"
func (x *WeatherRow) Date() string { return unixToDate(x.TimestampUnix) }

// Date returns UTC date of the measurement as "2006-01-02"
func (x *AirQualityRow) Date() string { return unixToDate(x.TimestampUnix) }

func unixToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateFormat)
}

// DateFormat is layout of date partition and aggregate key.
const DateFormat = "2006-01-02"

func toMilli(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// NewRecord converts EnrichedRecord to WeatherRow or AirQualityRow according to
// metrics variant.
func NewRecord(rec *EnrichedRecord) (Record, error) {
	switch m := rec.Metrics.(type) {
	case *WeatherMetrics:
		return &WeatherRow{
			TimestampUnix: rec.TimestampUnix,
			Timestamp:     toMilli(rec.Timestamp),
			IngestedAt:    toMilli(rec.IngestedAt),
			Longitude:     rec.Coord.Longitude,
			Latitude:      rec.Coord.Latitude,
			City:          string(rec.City),
			Offset:        rec.Offset,
			Temperature:   m.Temperature,
			FeelsLike:     m.FeelsLike,
			Humidity:      m.Humidity,
			Pressure:      m.Pressure,
		}, nil

	case *AirQualityMetrics:
		return &AirQualityRow{
			TimestampUnix: rec.TimestampUnix,
			Timestamp:     toMilli(rec.Timestamp),
			IngestedAt:    toMilli(rec.IngestedAt),
			Longitude:     rec.Coord.Longitude,
			Latitude:      rec.Coord.Latitude,
			City:          string(rec.City),
			Offset:        rec.Offset,
			AQI:           m.AQI,
			CO:            m.CO,
			NO:            m.NO,
			NO2:           m.NO2,
			O3:            m.O3,
			SO2:           m.SO2,
			PM25:          m.PM25,
			PM10:          m.PM10,
			NH3:           m.NH3,
		}, nil

	default:
		return nil, fmt.Errorf("Unsupported metrics type: %T", rec.Metrics)
	}
}

// NewRecords converts all EnrichedRecords in order.
func NewRecords(records []*EnrichedRecord) ([]Record, error) {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		r, err := NewRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
