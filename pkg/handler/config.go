package handler

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config has all parameters given to CLI commands and Lambda functions.
// CLI fills it by flags, Lambda by environment variables.
type Config struct {
	AwsRegion string `envconfig:"AWS_REGION" json:"aws_region"`

	// Lake
	S3Region string `envconfig:"S3_REGION" json:"s3_region"`
	S3Bucket string `envconfig:"S3_BUCKET" json:"s3_bucket"`
	S3Prefix string `envconfig:"S3_PREFIX" json:"s3_prefix"`

	// Checkpoint (DynamoDB)
	CheckpointTableName string `envconfig:"CHECKPOINT_TABLE_NAME" json:"checkpoint_table_name"`

	// Relational store. DSN is not dumped to log.
	PostgresDSN string `envconfig:"POSTGRES_DSN" json:"-"`

	// Log
	KafkaBrokers      []string      `envconfig:"KAFKA_BROKERS" json:"kafka_brokers"`
	KafkaPartition    int           `envconfig:"KAFKA_PARTITION" json:"kafka_partition"`
	KafkaMaxWait      time.Duration `envconfig:"KAFKA_MAX_WAIT" default:"1s" json:"kafka_max_wait"`
	StartFromEarliest bool          `envconfig:"START_FROM_EARLIEST" json:"start_from_earliest"`

	// Stream pipeline
	MaxBatchRecords      int           `envconfig:"MAX_BATCH_RECORDS" default:"10000" json:"max_batch_records"`
	TriggerInterval      time.Duration `envconfig:"TRIGGER_INTERVAL" default:"10s" json:"trigger_interval"`
	RetryInitialInterval time.Duration `envconfig:"RETRY_INITIAL_INTERVAL" default:"1s" json:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `envconfig:"RETRY_MAX_INTERVAL" default:"1m" json:"retry_max_interval"`

	// Aggregator -> Loader
	LoadQueueURL string `envconfig:"LOAD_QUEUE_URL" json:"load_queue_url"`

	StatusAddr string `envconfig:"STATUS_ADDR" default:"127.0.0.1:10080" json:"status_addr"`

	SentryDSN string `envconfig:"SENTRY_DSN" json:"-"`
	SentryEnv string `envconfig:"SENTRY_ENVIRONMENT" json:"sentry_env"`
	LogLevel  string `envconfig:"LOG_LEVEL" json:"log_level"`
}

// BindEnvVars fills Config by environment variables.
func (x *Config) BindEnvVars() error {
	if err := envconfig.Process("", x); err != nil {
		return errors.Wrap(err, "Failed envconfig.Process")
	}
	return nil
}

// LakeRegion returns region of lake bucket. AwsRegion is used if S3Region is
// not set.
func (x *Config) LakeRegion() string {
	if x.S3Region != "" {
		return x.S3Region
	}
	return x.AwsRegion
}

// Validate checks required parameters for each role.
func (x *Config) Validate(needs ...Requirement) error {
	var missing []string
	for _, need := range needs {
		switch need {
		case NeedLake:
			if x.LakeRegion() == "" {
				missing = append(missing, "S3_REGION")
			}
			if x.S3Bucket == "" {
				missing = append(missing, "S3_BUCKET")
			}
		case NeedCheckpoint:
			if x.AwsRegion == "" {
				missing = append(missing, "AWS_REGION")
			}
			if x.CheckpointTableName == "" {
				missing = append(missing, "CHECKPOINT_TABLE_NAME")
			}
		case NeedWarehouse:
			if x.PostgresDSN == "" {
				missing = append(missing, "POSTGRES_DSN")
			}
		case NeedLog:
			if len(x.KafkaBrokers) == 0 {
				missing = append(missing, "KAFKA_BROKERS")
			}
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("Missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Requirement is a group of Config fields required by a role.
type Requirement int

const (
	NeedLake Requirement = iota
	NeedCheckpoint
	NeedWarehouse
	NeedLog
)
