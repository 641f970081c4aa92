package service

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// LakeService reads and writes Parquet objects of the lake.
type LakeService struct {
	// TempDir is directory of local parquet files. Empty means os.TempDir().
	TempDir string

	s3Service *S3Service
}

// NewLakeService is constructor of LakeService
func NewLakeService(newS3 adaptor.S3ClientFactory) *LakeService {
	return &LakeService{
		s3Service: NewS3Service(newS3),
	}
}

// ListObjects returns all objects under base prefix.
func (x *LakeService) ListObjects(base models.S3Object) ([]models.S3Object, error) {
	return x.s3Service.ListObjects(base)
}

// newRowSchema returns empty row as parquet schema of topic and layer.
func newRowSchema(topic models.Topic, layer models.LakeLayer) (interface{}, error) {
	switch {
	case topic == models.TopicWeather && layer == models.LakeLayerStream:
		return new(models.WeatherRow), nil
	case topic == models.TopicAirQuality && layer == models.LakeLayerStream:
		return new(models.AirQualityRow), nil
	case topic == models.TopicWeather && layer == models.LakeLayerBatch:
		return new(models.WeatherDailyStat), nil
	case topic == models.TopicAirQuality && layer == models.LakeLayerBatch:
		return new(models.AirQualityDailyStat), nil
	default:
		return nil, fmt.Errorf("Unsupported lake schema: %s/%s", topic, layer)
	}
}

// WriteObject writes rows as one Parquet object to dst. All rows must belong
// to the topic and layer.
func (x *LakeService) WriteObject(topic models.Topic, layer models.LakeLayer, rows []models.Record, dst models.S3Object) error {
	filePath, err := x.DumpParquet(topic, layer, rows)
	if err != nil {
		return err
	}
	defer os.Remove(filePath)

	if err := x.s3Service.UploadFileToS3(filePath, dst); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"dst":  dst.Path(),
		"rows": len(rows),
	}).Debug("Wrote lake object")

	return nil
}

// DumpParquet writes rows to a local temp parquet file and returns the path.
// Caller must remove the file.
func (x *LakeService) DumpParquet(topic models.Topic, layer models.LakeLayer, rows []models.Record) (string, error) {
	schema, err := newRowSchema(topic, layer)
	if err != nil {
		return "", err
	}

	fd, err := ioutil.TempFile(x.TempDir, "*.parquet")
	if err != nil {
		return "", errors.Wrap(err, "Fail to create a temp parquet file")
	}
	fd.Close()
	filePath := fd.Name()

	if err := writeParquet(filePath, schema, rows); err != nil {
		os.Remove(filePath)
		return "", err
	}

	return filePath, nil
}

func writeParquet(filePath string, schema interface{}, rows []models.Record) error {
	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return errors.Wrap(err, "Fail to create a parquet file")
	}
	defer fw.Close()

	// Single goroutine keeps output identical for identical input.
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		return errors.Wrap(err, "Fail to create parquet writer")
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return errors.Wrapf(err, "Fail to write record as parquet: %v", rows[i])
		}
	}

	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "Fail to stop writing parquet file")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, "Fail to close parquet file")
	}

	return nil
}

// ReadObject downloads and reads all rows of a lake object. ErrObjectNotFound
// is returned if the object does not exist.
func (x *LakeService) ReadObject(topic models.Topic, layer models.LakeLayer, src models.S3Object) ([]models.Record, error) {
	filePath, err := x.s3Service.DownloadS3Object(src, x.TempDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(filePath)

	rows, err := readParquet(filePath, topic, layer)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to read lake object: %s", src.Path())
	}

	return rows, nil
}

func readParquet(filePath string, topic models.Topic, layer models.LakeLayer) ([]models.Record, error) {
	schema, err := newRowSchema(topic, layer)
	if err != nil {
		return nil, err
	}

	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to new local file reader")
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Fail to new parquet reader")
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	records := make([]models.Record, 0, num)
	if num == 0 {
		return records, nil
	}

	switch schema.(type) {
	case *models.WeatherRow:
		rows := make([]models.WeatherRow, num)
		if err := pr.Read(&rows); err != nil {
			return nil, errors.Wrap(err, "Fail to read weather rows")
		}
		for i := range rows {
			records = append(records, &rows[i])
		}

	case *models.AirQualityRow:
		rows := make([]models.AirQualityRow, num)
		if err := pr.Read(&rows); err != nil {
			return nil, errors.Wrap(err, "Fail to read air quality rows")
		}
		for i := range rows {
			records = append(records, &rows[i])
		}

	case *models.WeatherDailyStat:
		rows := make([]models.WeatherDailyStat, num)
		if err := pr.Read(&rows); err != nil {
			return nil, errors.Wrap(err, "Fail to read weather stats")
		}
		for i := range rows {
			records = append(records, &rows[i])
		}

	case *models.AirQualityDailyStat:
		rows := make([]models.AirQualityDailyStat, num)
		if err := pr.Read(&rows); err != nil {
			return nil, errors.Wrap(err, "Fail to read air quality stats")
		}
		for i := range rows {
			records = append(records, &rows[i])
		}
	}

	return records, nil
}
