package models

import "time"

// Coord is coordinate pair of RawEvent. Wire format is [lon, lat].
type Coord struct {
	Longitude float64
	Latitude  float64
}

// RawEvent is one decoded log message.
type RawEvent struct {
	Topic        Topic
	Coord        Coord
	Measurements []Measurement
}

// Measurement is one timestamped sample. Timestamp is zero if the message did
// not have "dt".
type Measurement struct {
	Timestamp int64
	Metrics   Metrics
}

// Metrics is closed union of WeatherMetrics and AirQualityMetrics.
type Metrics interface {
	Kind() MetricKind
	sealed()
}

// WeatherMetrics is payload of weather_data. Absent fields are nil.
type WeatherMetrics struct {
	Temperature *float64
	FeelsLike   *float64
	Humidity    *int32
	Pressure    *int32
}

// Kind returns KindWeather
func (x *WeatherMetrics) Kind() MetricKind { return KindWeather }
func (x *WeatherMetrics) sealed()          {}

// AirQualityMetrics is payload of air_quality_data. Absent fields are nil.
type AirQualityMetrics struct {
	AQI  *int32
	CO   *float64
	NO   *float64
	NO2  *float64
	O3   *float64
	SO2  *float64
	PM25 *float64
	PM10 *float64
	NH3  *float64
}

// Kind returns KindAirQuality
func (x *AirQualityMetrics) Kind() MetricKind { return KindAirQuality }
func (x *AirQualityMetrics) sealed()          {}

// FlatRecord is one Measurement with coordinate of the originating RawEvent.
type FlatRecord struct {
	TimestampUnix int64
	Coord         Coord
	Metrics       Metrics
	IngestedAt    time.Time
}

// EnrichedRecord is the unit written to both sinks of speed layer.
type EnrichedRecord struct {
	FlatRecord
	City      City
	Timestamp time.Time
	Offset    int64
}

// MicroBatch is set of EnrichedRecords committed together. FirstOffset and
// LastOffset cover all fetched messages including dropped ones.
type MicroBatch struct {
	Topic       Topic
	Partition   int
	FirstOffset int64
	LastOffset  int64
	Records     []*EnrichedRecord
	Dropped     int
}

// NextOffset is checkpoint value after committing the batch.
func (x *MicroBatch) NextOffset() int64 {
	return x.LastOffset + 1
}

// Len returns number of records
func (x *MicroBatch) Len() int {
	return len(x.Records)
}
