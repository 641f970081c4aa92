package batch

import (
	"sort"

	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
)

// accumulator keeps running statistics of one column. nil values are skipped.
type accumulator struct {
	n   int
	sum float64
	min float64
	max float64
}

func (x *accumulator) add(v *float64) {
	if v == nil {
		return
	}
	if x.n == 0 || *v < x.min {
		x.min = *v
	}
	if x.n == 0 || *v > x.max {
		x.max = *v
	}
	x.sum += *v
	x.n++
}

func (x *accumulator) addInt(v *int32) {
	if v == nil {
		return
	}
	f := float64(*v)
	x.add(&f)
}

func (x *accumulator) avg() *float64 {
	if x.n == 0 {
		return nil
	}
	v := x.sum / float64(x.n)
	return &v
}

func (x *accumulator) minimum() *float64 {
	if x.n == 0 {
		return nil
	}
	v := x.min
	return &v
}

func (x *accumulator) maximum() *float64 {
	if x.n == 0 {
		return nil
	}
	v := x.max
	return &v
}

type groupKey struct {
	date string
	city string
}

func sortedKeys(m map[groupKey]int64) []groupKey {
	keys := make([]groupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].city < keys[j].city
	})
	return keys
}

type weatherGroup struct {
	temperature, humidity, pressure accumulator
}

// aggregateWeather computes WeatherDailyStat per (date, city) ordered by
// date and city.
func aggregateWeather(rows []models.Record) ([]models.Record, error) {
	groups := map[groupKey]*weatherGroup{}
	counts := map[groupKey]int64{}

	for _, r := range rows {
		row, ok := r.(*models.WeatherRow)
		if !ok {
			return nil, errors.Errorf("Unexpected row type for weather: %T", r)
		}

		key := groupKey{date: row.Date(), city: row.City}
		g, ok := groups[key]
		if !ok {
			g = &weatherGroup{}
			groups[key] = g
		}
		g.temperature.add(row.Temperature)
		g.humidity.addInt(row.Humidity)
		g.pressure.addInt(row.Pressure)
		counts[key]++
	}

	var stats []models.Record
	for _, key := range sortedKeys(counts) {
		g := groups[key]
		stats = append(stats, &models.WeatherDailyStat{
			Date:           key.date,
			City:           key.city,
			AvgTemperature: g.temperature.avg(),
			MinTemperature: g.temperature.minimum(),
			MaxTemperature: g.temperature.maximum(),
			AvgHumidity:    g.humidity.avg(),
			MinHumidity:    g.humidity.minimum(),
			MaxHumidity:    g.humidity.maximum(),
			AvgPressure:    g.pressure.avg(),
			MinPressure:    g.pressure.minimum(),
			MaxPressure:    g.pressure.maximum(),
			RecordCount:    counts[key],
		})
	}

	return stats, nil
}

type airQualityGroup struct {
	aqi, co, no, no2, o3, so2, pm25, pm10, nh3 accumulator
}

// aggregateAirQuality computes AirQualityDailyStat per (date, city) ordered
// by date and city.
func aggregateAirQuality(rows []models.Record) ([]models.Record, error) {
	groups := map[groupKey]*airQualityGroup{}
	counts := map[groupKey]int64{}

	for _, r := range rows {
		row, ok := r.(*models.AirQualityRow)
		if !ok {
			return nil, errors.Errorf("Unexpected row type for air quality: %T", r)
		}

		key := groupKey{date: row.Date(), city: row.City}
		g, ok := groups[key]
		if !ok {
			g = &airQualityGroup{}
			groups[key] = g
		}
		g.aqi.addInt(row.AQI)
		g.co.add(row.CO)
		g.no.add(row.NO)
		g.no2.add(row.NO2)
		g.o3.add(row.O3)
		g.so2.add(row.SO2)
		g.pm25.add(row.PM25)
		g.pm10.add(row.PM10)
		g.nh3.add(row.NH3)
		counts[key]++
	}

	var stats []models.Record
	for _, key := range sortedKeys(counts) {
		g := groups[key]
		stats = append(stats, &models.AirQualityDailyStat{
			Date:        key.date,
			City:        key.city,
			AvgAQI:      g.aqi.avg(),
			MaxAQI:      g.aqi.maximum(),
			AvgCO:       g.co.avg(),
			MaxCO:       g.co.maximum(),
			AvgNO:       g.no.avg(),
			MaxNO:       g.no.maximum(),
			AvgNO2:      g.no2.avg(),
			MaxNO2:      g.no2.maximum(),
			AvgO3:       g.o3.avg(),
			MaxO3:       g.o3.maximum(),
			AvgSO2:      g.so2.avg(),
			MaxSO2:      g.so2.maximum(),
			AvgPM25:     g.pm25.avg(),
			MaxPM25:     g.pm25.maximum(),
			AvgPM10:     g.pm10.avg(),
			MaxPM10:     g.pm10.maximum(),
			AvgNH3:      g.nh3.avg(),
			MaxNH3:      g.nh3.maximum(),
			RecordCount: counts[key],
		})
	}

	return stats, nil
}

func aggregate(topic models.Topic, rows []models.Record) ([]models.Record, error) {
	switch topic {
	case models.TopicWeather:
		return aggregateWeather(rows)
	case models.TopicAirQuality:
		return aggregateAirQuality(rows)
	default:
		return nil, errors.Errorf("Unsupported topic: %s", topic)
	}
}
