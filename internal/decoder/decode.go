package decoder

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
)

// ErrMalformedEvent is returned when payload does not have expected shape.
var ErrMalformedEvent = fmt.Errorf("Malformed event")

type rawEvent struct {
	Coord []float64   `json:"coord"`
	List  *[]rawEntry `json:"list"`
}

type rawEntry struct {
	Dt         *int64         `json:"dt"`
	Main       *rawMain       `json:"main"`
	Components *rawComponents `json:"components"`
}

// rawMain has union of weather and air quality "main" fields. Integer fields
// are decoded as float to accept "80.0".
type rawMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
	AQI       *float64 `json:"aqi"`
}

type rawComponents struct {
	CO   *float64 `json:"co"`
	NO   *float64 `json:"no"`
	NO2  *float64 `json:"no2"`
	O3   *float64 `json:"o3"`
	SO2  *float64 `json:"so2"`
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	NH3  *float64 `json:"nh3"`
}

// Decoder converts log message of one topic to RawEvent.
type Decoder struct {
	topic models.Topic
	kind  models.MetricKind
}

// NewDecoder is constructor of Decoder. Metric variant is resolved by topic.
func NewDecoder(topic models.Topic) (*Decoder, error) {
	kind, err := topic.Kind()
	if err != nil {
		return nil, err
	}
	return &Decoder{topic: topic, kind: kind}, nil
}

// Decode is shorthand of NewDecoder and Decoder.Decode
func Decode(topic models.Topic, payload []byte) (*models.RawEvent, error) {
	d, err := NewDecoder(topic)
	if err != nil {
		return nil, err
	}
	return d.Decode(payload)
}

// Decode parses payload. Absent metric fields become nil. A measurement
// without "dt" has zero Timestamp and is dropped by Flattener.
func (x *Decoder) Decode(payload []byte) (*models.RawEvent, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, errors.Wrap(ErrMalformedEvent, err.Error())
	}

	if len(raw.Coord) != 2 {
		return nil, errors.Wrapf(ErrMalformedEvent, "coord must be [lon, lat]: %v", raw.Coord)
	}
	if raw.List == nil {
		return nil, errors.Wrap(ErrMalformedEvent, "list is required")
	}

	ev := &models.RawEvent{
		Topic: x.topic,
		Coord: models.Coord{
			Longitude: raw.Coord[0],
			Latitude:  raw.Coord[1],
		},
		Measurements: make([]models.Measurement, 0, len(*raw.List)),
	}

	for i, entry := range *raw.List {
		var ts int64
		if entry.Dt != nil && *entry.Dt > 0 {
			ts = *entry.Dt
		}

		metrics, err := x.decodeMetrics(&entry)
		if err != nil {
			return nil, errors.Wrapf(err, "list[%d]", i)
		}

		ev.Measurements = append(ev.Measurements, models.Measurement{
			Timestamp: ts,
			Metrics:   metrics,
		})
	}

	return ev, nil
}

func (x *Decoder) decodeMetrics(entry *rawEntry) (models.Metrics, error) {
	main := entry.Main
	if main == nil {
		main = &rawMain{}
	}

	switch x.kind {
	case models.KindWeather:
		humidity, err := toInt32("humidity", main.Humidity)
		if err != nil {
			return nil, err
		}
		pressure, err := toInt32("pressure", main.Pressure)
		if err != nil {
			return nil, err
		}

		return &models.WeatherMetrics{
			Temperature: main.Temp,
			FeelsLike:   main.FeelsLike,
			Humidity:    humidity,
			Pressure:    pressure,
		}, nil

	case models.KindAirQuality:
		comp := entry.Components
		if comp == nil {
			comp = &rawComponents{}
		}

		aqi, err := toInt32("aqi", main.AQI)
		if err != nil {
			return nil, err
		}

		m := &models.AirQualityMetrics{
			AQI:  aqi,
			CO:   comp.CO,
			NO:   comp.NO,
			NO2:  comp.NO2,
			O3:   comp.O3,
			SO2:  comp.SO2,
			PM25: comp.PM25,
			PM10: comp.PM10,
			NH3:  comp.NH3,
		}
		if err := validateAirQuality(m); err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("Unsupported metric kind: %v", x.kind)
	}
}

func validateAirQuality(m *models.AirQualityMetrics) error {
	if m.AQI != nil && (*m.AQI < 1 || 5 < *m.AQI) {
		return errors.Wrapf(ErrMalformedEvent, "aqi must be 1 to 5: %d", *m.AQI)
	}

	for name, v := range map[string]*float64{
		"co": m.CO, "no": m.NO, "no2": m.NO2, "o3": m.O3, "so2": m.SO2,
		"pm2_5": m.PM25, "pm10": m.PM10, "nh3": m.NH3,
	} {
		if v != nil && *v < 0 {
			return errors.Wrapf(ErrMalformedEvent, "%s must not be negative: %f", name, *v)
		}
	}
	return nil
}

// toInt32 rounds v. Value out of int32 range is malformed because conversion
// of such float is implementation specific in Go.
func toInt32(name string, v *float64) (*int32, error) {
	if v == nil {
		return nil, nil
	}

	r := math.Round(*v)
	if math.IsNaN(r) || r < math.MinInt32 || math.MaxInt32 < r {
		return nil, errors.Wrapf(ErrMalformedEvent, "%s is out of int32 range: %g", name, *v)
	}

	i := int32(r)
	return &i, nil
}
