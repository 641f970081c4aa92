package service

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/internal/adaptor"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

// ErrObjectNotFound is returned when S3 object does not exist
var ErrObjectNotFound = fmt.Errorf("S3 object not found")

// S3Service is accessor to S3
type S3Service struct {
	newS3 adaptor.S3ClientFactory
}

// NewS3Service is constructor of S3Service
func NewS3Service(newS3 adaptor.S3ClientFactory) *S3Service {
	return &S3Service{
		newS3: newS3,
	}
}

// UploadFileToS3 upload a specified local file to S3. Existing object is
// replaced by PutObject atomically.
func (x *S3Service) UploadFileToS3(filePath string, dst models.S3Object) error {
	fd, err := os.Open(filePath)
	if err != nil {
		return errors.Wrapf(err, "Fail to open a parquet file: %s", filePath)
	}
	defer fd.Close()

	client := x.newS3(dst.Region)
	input := &s3.PutObjectInput{
		Body:   fd,
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(dst.Key),
	}

	if _, err := client.PutObject(input); err != nil {
		return errors.Wrapf(err, "Fail to upload a parquet file: %s", dst.Path())
	}

	logger.WithFields(logrus.Fields{
		"bucket": dst.Bucket,
		"key":    dst.Key,
	}).Debug("Uploaded a parquet file")

	return nil
}

// DownloadS3Object downloads a specified remote object from S3 to a temp
// file and returns the file path. ErrObjectNotFound is returned if no object.
func (x *S3Service) DownloadS3Object(obj models.S3Object, tempDir string) (string, error) {
	client := x.newS3(obj.Region)
	input := &s3.GetObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	}

	resp, err := client.GetObject(input)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return "", ErrObjectNotFound
		}
		return "", errors.Wrapf(err, "Fail to download a parquet file: %s", obj.Path())
	}
	defer resp.Body.Close()

	fd, err := ioutil.TempFile(tempDir, "*.parquet")
	if err != nil {
		return "", errors.Wrap(err, "Fail to create a temp parquet file")
	}
	defer fd.Close()

	n, err := io.Copy(fd, resp.Body)
	if err != nil {
		os.Remove(fd.Name())
		return "", errors.Wrapf(err, "Fail to read a parquet file from S3: %s", obj.Path())
	}

	logger.WithFields(logrus.Fields{
		"size": n, "fpath": fd.Name(), "srckey": obj.Key,
	}).Trace("Downloaded S3 object")

	return fd.Name(), nil
}

// ListObjects returns all objects having prefix of base.Key, following
// continuation tokens.
func (x *S3Service) ListObjects(base models.S3Object) ([]models.S3Object, error) {
	client := x.newS3(base.Region)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(base.Bucket),
		Prefix: aws.String(base.Key),
	}

	var objects []models.S3Object
	for {
		output, err := client.ListObjectsV2(input)
		if err != nil {
			return nil, errors.Wrapf(err, "Fail to list objects: %s", base.Path())
		}

		for _, obj := range output.Contents {
			objects = append(objects, models.NewS3Object(base.Region, base.Bucket, aws.StringValue(obj.Key)))
		}

		if !aws.BoolValue(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}

	return objects, nil
}
