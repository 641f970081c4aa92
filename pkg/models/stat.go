package models

// WeatherDailyStat is DailyAggregate of weather_data keyed by (Date, City).
type WeatherDailyStat struct {
	Date string `parquet:"name=date, type=UTF8, encoding=PLAIN_DICTIONARY" json:"date"`
	City string `parquet:"name=city, type=UTF8, encoding=PLAIN_DICTIONARY" json:"city"`

	AvgTemperature *float64 `parquet:"name=avg_temperature, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_temperature"`
	MinTemperature *float64 `parquet:"name=min_temperature, type=DOUBLE, repetitiontype=OPTIONAL" json:"min_temperature"`
	MaxTemperature *float64 `parquet:"name=max_temperature, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_temperature"`
	AvgHumidity    *float64 `parquet:"name=avg_humidity, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_humidity"`
	MinHumidity    *float64 `parquet:"name=min_humidity, type=DOUBLE, repetitiontype=OPTIONAL" json:"min_humidity"`
	MaxHumidity    *float64 `parquet:"name=max_humidity, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_humidity"`
	AvgPressure    *float64 `parquet:"name=avg_pressure, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_pressure"`
	MinPressure    *float64 `parquet:"name=min_pressure, type=DOUBLE, repetitiontype=OPTIONAL" json:"min_pressure"`
	MaxPressure    *float64 `parquet:"name=max_pressure, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_pressure"`

	RecordCount int64 `parquet:"name=record_count, type=INT64" json:"record_count"`
}

// AirQualityDailyStat is DailyAggregate of air_quality_data keyed by (Date, City).
type AirQualityDailyStat struct {
	Date string `parquet:"name=date, type=UTF8, encoding=PLAIN_DICTIONARY" json:"date"`
	City string `parquet:"name=city, type=UTF8, encoding=PLAIN_DICTIONARY" json:"city"`

	AvgAQI  *float64 `parquet:"name=avg_aqi, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_aqi"`
	MaxAQI  *float64 `parquet:"name=max_aqi, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_aqi"`
	AvgCO   *float64 `parquet:"name=avg_co, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_co"`
	MaxCO   *float64 `parquet:"name=max_co, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_co"`
	AvgNO   *float64 `parquet:"name=avg_no, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_no"`
	MaxNO   *float64 `parquet:"name=max_no, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_no"`
	AvgNO2  *float64 `parquet:"name=avg_no2, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_no2"`
	MaxNO2  *float64 `parquet:"name=max_no2, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_no2"`
	AvgO3   *float64 `parquet:"name=avg_o3, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_o3"`
	MaxO3   *float64 `parquet:"name=max_o3, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_o3"`
	AvgSO2  *float64 `parquet:"name=avg_so2, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_so2"`
	MaxSO2  *float64 `parquet:"name=max_so2, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_so2"`
	AvgPM25 *float64 `parquet:"name=avg_pm2_5, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_pm2_5"`
	MaxPM25 *float64 `parquet:"name=max_pm2_5, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_pm2_5"`
	AvgPM10 *float64 `parquet:"name=avg_pm10, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_pm10"`
	MaxPM10 *float64 `parquet:"name=max_pm10, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_pm10"`
	AvgNH3  *float64 `parquet:"name=avg_nh3, type=DOUBLE, repetitiontype=OPTIONAL" json:"avg_nh3"`
	MaxNH3  *float64 `parquet:"name=max_nh3, type=DOUBLE, repetitiontype=OPTIONAL" json:"max_nh3"`

	RecordCount int64 `parquet:"name=record_count, type=INT64" json:"record_count"`
}
