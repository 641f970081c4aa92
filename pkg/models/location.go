package models

import (
	"crypto/sha1"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// LakeLayer identifies stream (raw append) or batch (aggregate overwrite) area.
type LakeLayer string

const (
	// LakeLayerStream indicates raw EnrichedRecord objects
	LakeLayerStream LakeLayer = "stream"
	// LakeLayerBatch indicates DailyAggregate objects
	LakeLayerBatch LakeLayer = "batch"
)

const aggregateObjectName = "daily_stats/part-00000.parquet"

// LakeLocation indicates S3 path of lake object. The path rule is:
//
// Raw: {prefix}{topic}/stream/dt={date}/{firstOffset}-{lastOffset}.{hash}.parquet
// Aggregate: {prefix}{topic}/batch/daily_stats/part-00000.parquet
type LakeLocation struct {
	Region       string
	Bucket       string
	Prefix       string
	Topic        Topic
	Layer        LakeLayer
	Date         time.Time
	FirstOffset  int64
	LastOffset   int64
	FileNameSalt string
}

// TopicPrefix returns key prefix of the layer of the topic.
func (x LakeLocation) TopicPrefix() string {
	return x.Prefix + string(x.Topic) + "/" + string(x.Layer) + "/"
}

// DtKey returns date key for "dt="
func (x LakeLocation) DtKey() string {
	return x.Date.UTC().Format(DateFormat)
}

// Partition returns a partition related part of S3 key.
func (x LakeLocation) Partition() string {
	return "dt=" + x.DtKey()
}

// S3Key returns full S3 key of the lake object.
func (x LakeLocation) S3Key() string {
	if x.Layer == LakeLayerBatch {
		return x.TopicPrefix() + aggregateObjectName
	}

	name := fmt.Sprintf("%d-%d", x.FirstOffset, x.LastOffset)
	key := x.TopicPrefix() + x.Partition() + "/" + name
	if x.FileNameSalt != "" {
		// Avoid file name conflict between retries of the same offset range.
		h := sha1.New()
		h.Write([]byte(name + x.FileNameSalt))
		key += fmt.Sprintf(".%x", h.Sum(nil))
	}
	return key + ".parquet"
}

// S3Object returns S3Object of the location
func (x LakeLocation) S3Object() S3Object {
	return NewS3Object(x.Region, x.Bucket, x.S3Key())
}

// ParseS3Key parses S3 key of raw layer to generate a new LakeLocation
func ParseS3Key(key, prefix string) (*LakeLocation, error) {
	if !strings.HasPrefix(key, prefix) {
		return nil, fmt.Errorf("Prefix is not matched: %s %s", prefix, key)
	}

	arr := strings.Split(key[len(prefix):], "/")
	if len(arr) < 2 {
		return nil, fmt.Errorf("Too short lake key: %s", key)
	}

	topic, err := ParseTopic(arr[0])
	if err != nil {
		return nil, err
	}
	loc := LakeLocation{
		Prefix: prefix,
		Topic:  topic,
		Layer:  LakeLayer(arr[1]),
	}

	switch loc.Layer {
	case LakeLayerBatch:
		if strings.Join(arr[2:], "/") != aggregateObjectName {
			return nil, fmt.Errorf("Invalid aggregate object key: %s", key)
		}
		return &loc, nil

	case LakeLayerStream:
		if len(arr) != 4 {
			return nil, fmt.Errorf("Invalid raw object key: %s", key)
		}

	default:
		return nil, fmt.Errorf("Invalid lake layer: %v", arr[1])
	}

	// dt key
	if !strings.HasPrefix(arr[2], "dt=") {
		return nil, fmt.Errorf("Invalid partition key (dt): %v", arr[2])
	}
	dt, err := time.Parse(DateFormat, arr[2][len("dt="):])
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to parse dt key: %v", arr[2])
	}
	loc.Date = dt

	// {first}-{last}[.{hash}].parquet
	name := strings.TrimSuffix(arr[3], ".parquet")
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	offsets := strings.Split(name, "-")
	if len(offsets) != 2 {
		return nil, fmt.Errorf("Invalid offset range: %v", arr[3])
	}
	if loc.FirstOffset, err = strconv.ParseInt(offsets[0], 10, 64); err != nil {
		return nil, errors.Wrapf(err, "Fail to parse first offset: %v", arr[3])
	}
	if loc.LastOffset, err = strconv.ParseInt(offsets[1], 10, 64); err != nil {
		return nil, errors.Wrapf(err, "Fail to parse last offset: %v", arr[3])
	}

	return &loc, nil
}
