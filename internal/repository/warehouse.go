package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
)

// RecordRepository is append-only store of speed layer rows.
type RecordRepository interface {
	AppendRecords(ctx context.Context, table string, records []models.Record) (int64, error)
}

// ServingRepository is truncate-and-reload store of daily aggregates.
type ServingRepository interface {
	Truncate(ctx context.Context, table string) error
	InsertStats(ctx context.Context, table string, stats []models.Record) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)
}

// WarehouseRepository is whole relational store used by envlake.
type WarehouseRepository interface {
	RecordRepository
	ServingRepository
}

type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// WarehousePostgres implements RecordRepository and ServingRepository on
// PostgreSQL.
type WarehousePostgres struct {
	pool *pgxpool.Pool
	conn pgConn
}

// NewWarehousePostgres is constructor of WarehousePostgres. It connects to
// dsn and checks the connection.
func NewWarehousePostgres(ctx context.Context, dsn string) (*WarehousePostgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create PostgreSQL pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "Failed to ping PostgreSQL")
	}

	return &WarehousePostgres{pool: pool, conn: pool}, nil
}

// Close releases connection pool
func (x *WarehousePostgres) Close() {
	if x.pool != nil {
		x.pool.Close()
	}
}

const speedTableColumnsDDL = `
	timestamp_unix BIGINT NOT NULL,
	ts             TIMESTAMPTZ NOT NULL,
	ingested_at    TIMESTAMPTZ NOT NULL,
	longitude      DOUBLE PRECISION NOT NULL,
	latitude       DOUBLE PRECISION NOT NULL,
	city           TEXT NOT NULL,
	kafka_offset   BIGINT NOT NULL,`

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS weather_final (` + speedTableColumnsDDL + `
	temperature DOUBLE PRECISION,
	feels_like  DOUBLE PRECISION,
	humidity    INTEGER,
	pressure    INTEGER
)`,
	`CREATE TABLE IF NOT EXISTS air_quality_final (` + speedTableColumnsDDL + `
	aqi   INTEGER,
	co    DOUBLE PRECISION,
	no    DOUBLE PRECISION,
	no2   DOUBLE PRECISION,
	o3    DOUBLE PRECISION,
	so2   DOUBLE PRECISION,
	pm2_5 DOUBLE PRECISION,
	pm10  DOUBLE PRECISION,
	nh3   DOUBLE PRECISION
)`,
	`CREATE TABLE IF NOT EXISTS weather_daily_stats (
	date            DATE NOT NULL,
	city            TEXT NOT NULL,
	avg_temperature DOUBLE PRECISION,
	min_temperature DOUBLE PRECISION,
	max_temperature DOUBLE PRECISION,
	avg_humidity    DOUBLE PRECISION,
	min_humidity    DOUBLE PRECISION,
	max_humidity    DOUBLE PRECISION,
	avg_pressure    DOUBLE PRECISION,
	min_pressure    DOUBLE PRECISION,
	max_pressure    DOUBLE PRECISION,
	record_count    BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS air_quality_daily_stats (
	date         DATE NOT NULL,
	city         TEXT NOT NULL,
	avg_aqi      DOUBLE PRECISION,
	max_aqi      DOUBLE PRECISION,
	avg_co       DOUBLE PRECISION,
	max_co       DOUBLE PRECISION,
	avg_no       DOUBLE PRECISION,
	max_no       DOUBLE PRECISION,
	avg_no2      DOUBLE PRECISION,
	max_no2      DOUBLE PRECISION,
	avg_o3       DOUBLE PRECISION,
	max_o3       DOUBLE PRECISION,
	avg_so2      DOUBLE PRECISION,
	max_so2      DOUBLE PRECISION,
	avg_pm2_5    DOUBLE PRECISION,
	max_pm2_5    DOUBLE PRECISION,
	avg_pm10     DOUBLE PRECISION,
	max_pm10     DOUBLE PRECISION,
	avg_nh3      DOUBLE PRECISION,
	max_nh3      DOUBLE PRECISION,
	record_count BIGINT NOT NULL
)`,
}

// Migrate creates speed and serving tables if not exist.
func (x *WarehousePostgres) Migrate(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := x.conn.Exec(ctx, ddl); err != nil {
			return errors.Wrap(err, "Failed to apply schema")
		}
	}
	return nil
}

func tableIdentifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

var (
	weatherRowColumns = []string{
		"timestamp_unix", "ts", "ingested_at", "longitude", "latitude", "city", "kafka_offset",
		"temperature", "feels_like", "humidity", "pressure",
	}
	airQualityRowColumns = []string{
		"timestamp_unix", "ts", "ingested_at", "longitude", "latitude", "city", "kafka_offset",
		"aqi", "co", "no", "no2", "o3", "so2", "pm2_5", "pm10", "nh3",
	}
	weatherStatColumns = []string{
		"date", "city",
		"avg_temperature", "min_temperature", "max_temperature",
		"avg_humidity", "min_humidity", "max_humidity",
		"avg_pressure", "min_pressure", "max_pressure",
		"record_count",
	}
	airQualityStatColumns = []string{
		"date", "city",
		"avg_aqi", "max_aqi", "avg_co", "max_co", "avg_no", "max_no",
		"avg_no2", "max_no2", "avg_o3", "max_o3", "avg_so2", "max_so2",
		"avg_pm2_5", "max_pm2_5", "avg_pm10", "max_pm10", "avg_nh3", "max_nh3",
		"record_count",
	}
)

// toCopyRows converts rows of one kind to COPY source. All rows must have
// same type as the first one.
func toCopyRows(rows []models.Record) ([]string, [][]any, error) {
	if len(rows) == 0 {
		return nil, nil, nil
	}

	var columns []string
	values := make([][]any, 0, len(rows))

	for _, row := range rows {
		var v []any
		var cols []string

		switch r := row.(type) {
		case *models.WeatherRow:
			cols = weatherRowColumns
			v = []any{
				r.TimestampUnix, time.UnixMilli(r.Timestamp).UTC(), time.UnixMilli(r.IngestedAt).UTC(),
				r.Longitude, r.Latitude, r.City, r.Offset,
				r.Temperature, r.FeelsLike, r.Humidity, r.Pressure,
			}
		case *models.AirQualityRow:
			cols = airQualityRowColumns
			v = []any{
				r.TimestampUnix, time.UnixMilli(r.Timestamp).UTC(), time.UnixMilli(r.IngestedAt).UTC(),
				r.Longitude, r.Latitude, r.City, r.Offset,
				r.AQI, r.CO, r.NO, r.NO2, r.O3, r.SO2, r.PM25, r.PM10, r.NH3,
			}
		case *models.WeatherDailyStat:
			date, err := time.Parse(models.DateFormat, r.Date)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "Invalid date of stat: %s", r.Date)
			}
			cols = weatherStatColumns
			v = []any{
				date, r.City,
				r.AvgTemperature, r.MinTemperature, r.MaxTemperature,
				r.AvgHumidity, r.MinHumidity, r.MaxHumidity,
				r.AvgPressure, r.MinPressure, r.MaxPressure,
				r.RecordCount,
			}
		case *models.AirQualityDailyStat:
			date, err := time.Parse(models.DateFormat, r.Date)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "Invalid date of stat: %s", r.Date)
			}
			cols = airQualityStatColumns
			v = []any{
				date, r.City,
				r.AvgAQI, r.MaxAQI, r.AvgCO, r.MaxCO, r.AvgNO, r.MaxNO,
				r.AvgNO2, r.MaxNO2, r.AvgO3, r.MaxO3, r.AvgSO2, r.MaxSO2,
				r.AvgPM25, r.MaxPM25, r.AvgPM10, r.MaxPM10, r.AvgNH3, r.MaxNH3,
				r.RecordCount,
			}
		default:
			return nil, nil, fmt.Errorf("Unsupported row type: %T", row)
		}

		if reflect.TypeOf(row) != reflect.TypeOf(rows[0]) {
			return nil, nil, fmt.Errorf("Mixed row types are not allowed: %T and %T", rows[0], row)
		}
		columns = cols
		values = append(values, v)
	}

	return columns, values, nil
}

func (x *WarehousePostgres) copyRows(ctx context.Context, table string, rows []models.Record) (int64, error) {
	columns, values, err := toCopyRows(rows)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}

	n, err := x.conn.CopyFrom(ctx, tableIdentifier(table), columns, pgx.CopyFromRows(values))
	if err != nil {
		return n, errors.Wrapf(err, "Failed to copy rows into %s", table)
	}
	return n, nil
}

// AppendRecords appends WeatherRow or AirQualityRow to the speed table.
func (x *WarehousePostgres) AppendRecords(ctx context.Context, table string, records []models.Record) (int64, error) {
	return x.copyRows(ctx, table, records)
}

// InsertStats inserts WeatherDailyStat or AirQualityDailyStat to the serving table.
func (x *WarehousePostgres) InsertStats(ctx context.Context, table string, stats []models.Record) (int64, error) {
	return x.copyRows(ctx, table, stats)
}

// Truncate removes all rows of the table.
func (x *WarehousePostgres) Truncate(ctx context.Context, table string) error {
	sql := "TRUNCATE TABLE " + tableIdentifier(table).Sanitize()
	if _, err := x.conn.Exec(ctx, sql); err != nil {
		return errors.Wrapf(err, "Failed to truncate %s", table)
	}
	return nil
}

// CountRows returns number of rows of the table.
func (x *WarehousePostgres) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	sql := "SELECT count(*) FROM " + tableIdentifier(table).Sanitize()
	if err := x.conn.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "Failed to count rows of %s", table)
	}
	return n, nil
}
