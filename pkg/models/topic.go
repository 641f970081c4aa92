package models

import "fmt"

// Topic is name of log topic carrying one kind of telemetry.
type Topic string

const (
	// TopicWeather carries weather measurements
	TopicWeather Topic = "weather_data"
	// TopicAirQuality carries air pollution measurements
	TopicAirQuality Topic = "air_quality_data"
)

// MetricKind identifies variant of Measurement payload.
type MetricKind int

const (
	// KindWeather is for WeatherMetrics
	KindWeather MetricKind = iota + 1
	// KindAirQuality is for AirQualityMetrics
	KindAirQuality
)

func (x MetricKind) String() string {
	switch x {
	case KindWeather:
		return "weather"
	case KindAirQuality:
		return "air_quality"
	default:
		return fmt.Sprintf("unknown(%d)", int(x))
	}
}

// Topics returns all supported topics in fixed order.
func Topics() []Topic {
	return []Topic{TopicWeather, TopicAirQuality}
}

// Kind resolves metric variant of the topic.
func (x Topic) Kind() (MetricKind, error) {
	switch x {
	case TopicWeather:
		return KindWeather, nil
	case TopicAirQuality:
		return KindAirQuality, nil
	default:
		return 0, fmt.Errorf("Unsupported topic: %s", string(x))
	}
}

// ParseTopic validates topic name.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if _, err := t.Kind(); err != nil {
		return "", err
	}
	return t, nil
}

// City is label derived from coordinate.
type City string

// City labels
const (
	CityHanoi   City = "Hanoi"
	CityHCM     City = "HCM"
	CityDaNang  City = "DaNang"
	CityUnknown City = "Unknown"
)

// SpeedTable returns relational table name receiving EnrichedRecords of the topic.
func (x Topic) SpeedTable() string {
	switch x {
	case TopicWeather:
		return "weather_final"
	case TopicAirQuality:
		return "air_quality_final"
	default:
		return ""
	}
}

// ServingTable returns relational table name of ServingSnapshot of the topic.
func (x Topic) ServingTable() string {
	switch x {
	case TopicWeather:
		return "weather_daily_stats"
	case TopicAirQuality:
		return "air_quality_daily_stats"
	default:
		return ""
	}
}
