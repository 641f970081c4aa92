package decoder_test

import (
	"math"
	"testing"

	"github.com/m-mizutani/envlake/internal/decoder"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAirQuality(t *testing.T) {
	payload := `{"coord":[105.85,21.03],"list":[{"dt":1700000000,"main":{"aqi":4},"components":{"pm2_5":180.0,"co":250.0}}]}`

	ev, err := decoder.Decode(models.TopicAirQuality, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, models.TopicAirQuality, ev.Topic)
	assert.Equal(t, 105.85, ev.Coord.Longitude)
	assert.Equal(t, 21.03, ev.Coord.Latitude)
	require.Equal(t, 1, len(ev.Measurements))

	m := ev.Measurements[0]
	assert.Equal(t, int64(1700000000), m.Timestamp)
	aq, ok := m.Metrics.(*models.AirQualityMetrics)
	require.True(t, ok)
	assert.Equal(t, models.KindAirQuality, aq.Kind())
	assert.Equal(t, int32(4), *aq.AQI)
	assert.Equal(t, 180.0, *aq.PM25)
	assert.Equal(t, 250.0, *aq.CO)
	assert.Nil(t, aq.NO)
	assert.Nil(t, aq.NH3)
}

func TestDecodeWeather(t *testing.T) {
	payload := `{"coord":[108.2,16.05],"list":[
		{"dt":1700000000,"main":{"temp":30.5,"feels_like":33.1,"humidity":80,"pressure":1012}},
		{"dt":1700003600,"main":{"temp":29.0}}
	]}`

	ev, err := decoder.Decode(models.TopicWeather, []byte(payload))
	require.NoError(t, err)
	require.Equal(t, 2, len(ev.Measurements))

	w0 := ev.Measurements[0].Metrics.(*models.WeatherMetrics)
	assert.Equal(t, 30.5, *w0.Temperature)
	assert.Equal(t, 33.1, *w0.FeelsLike)
	assert.Equal(t, int32(80), *w0.Humidity)
	assert.Equal(t, int32(1012), *w0.Pressure)

	t.Run("absent fields are nil", func(tt *testing.T) {
		w1 := ev.Measurements[1].Metrics.(*models.WeatherMetrics)
		assert.Equal(tt, 29.0, *w1.Temperature)
		assert.Nil(tt, w1.FeelsLike)
		assert.Nil(tt, w1.Humidity)
		assert.Nil(tt, w1.Pressure)
	})
}

func TestDecodeMissingTimestamp(t *testing.T) {
	payload := `{"coord":[105.85,21.03],"list":[{"main":{"temp":20}},{"dt":-5,"main":{"temp":21}},{"dt":1700000000,"main":{"temp":22}}]}`

	ev, err := decoder.Decode(models.TopicWeather, []byte(payload))
	require.NoError(t, err)
	require.Equal(t, 3, len(ev.Measurements))
	assert.Equal(t, int64(0), ev.Measurements[0].Timestamp)
	assert.Equal(t, int64(0), ev.Measurements[1].Timestamp)
	assert.Equal(t, int64(1700000000), ev.Measurements[2].Timestamp)
}

func TestDecodeMalformed(t *testing.T) {
	testCases := map[string]string{
		"not json":          `{"coord":`,
		"missing coord":     `{"list":[]}`,
		"short coord":       `{"coord":[105.85],"list":[]}`,
		"coord is string":   `{"coord":"105,21","list":[]}`,
		"missing list":      `{"coord":[105.85,21.03]}`,
		"aqi out of range":  `{"coord":[1,2],"list":[{"dt":1,"main":{"aqi":9}}]}`,
		"negative pm2_5":    `{"coord":[1,2],"list":[{"dt":1,"main":{"aqi":1},"components":{"pm2_5":-1}}]}`,
		"list is not array": `{"coord":[1,2],"list":{}}`,
		"aqi over int32":    `{"coord":[1,2],"list":[{"dt":1,"main":{"aqi":4294967300}}]}`,
	}

	for title, payload := range testCases {
		t.Run(title, func(tt *testing.T) {
			_, err := decoder.Decode(models.TopicAirQuality, []byte(payload))
			require.Error(tt, err)
			assert.Equal(tt, decoder.ErrMalformedEvent, errors.Cause(err))
		})
	}
}

func TestDecodeIntegerOutOfRange(t *testing.T) {
	testCases := map[string]string{
		"huge humidity":     `{"coord":[105.85,21.03],"list":[{"dt":1700000000,"main":{"temp":20,"humidity":1e12}}]}`,
		"negative pressure": `{"coord":[105.85,21.03],"list":[{"dt":1700000000,"main":{"pressure":-3e9}}]}`,
	}

	for title, payload := range testCases {
		t.Run(title, func(tt *testing.T) {
			_, err := decoder.Decode(models.TopicWeather, []byte(payload))
			require.Error(tt, err)
			assert.Equal(tt, decoder.ErrMalformedEvent, errors.Cause(err))
		})
	}

	t.Run("boundary is accepted", func(tt *testing.T) {
		payload := `{"coord":[105.85,21.03],"list":[{"dt":1700000000,"main":{"humidity":2147483647,"pressure":-2147483648}}]}`
		ev, err := decoder.Decode(models.TopicWeather, []byte(payload))
		require.NoError(tt, err)
		m := ev.Measurements[0].Metrics.(*models.WeatherMetrics)
		assert.Equal(tt, int32(math.MaxInt32), *m.Humidity)
		assert.Equal(tt, int32(math.MinInt32), *m.Pressure)
	})
}

func TestDecodeEmptyList(t *testing.T) {
	ev, err := decoder.Decode(models.TopicWeather, []byte(`{"coord":[0,0],"list":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, len(ev.Measurements))
}

func TestNewDecoderUnknownTopic(t *testing.T) {
	_, err := decoder.NewDecoder(models.Topic("traffic"))
	assert.Error(t, err)
}
