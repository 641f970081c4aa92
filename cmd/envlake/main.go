package main

import (
	"os"

	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"
)

var logger = handler.Logger

func main() {
	args := &handler.Arguments{}

	app := newApp(args)
	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("Abort")
	}
}

func newApp(args *handler.Arguments) *cli.App {
	return &cli.App{
		Name:  "envlake",
		Usage: "Environmental telemetry lake: stream ingestion, daily aggregation and serving load",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "region",
				Aliases:     []string{"r"},
				Usage:       "AWS region of DynamoDB and SQS",
				EnvVars:     []string{"AWS_REGION"},
				Destination: &args.AwsRegion,
			},
			&cli.StringFlag{
				Name:        "s3-region",
				Usage:       "AWS region of lake bucket (default: --region)",
				EnvVars:     []string{"S3_REGION"},
				Destination: &args.S3Region,
			},
			&cli.StringFlag{
				Name:        "s3-bucket",
				Aliases:     []string{"b"},
				Usage:       "S3 bucket of lake",
				EnvVars:     []string{"S3_BUCKET"},
				Destination: &args.S3Bucket,
			},
			&cli.StringFlag{
				Name:        "s3-prefix",
				Aliases:     []string{"p"},
				Usage:       "S3 key prefix of lake",
				EnvVars:     []string{"S3_PREFIX"},
				Destination: &args.S3Prefix,
			},
			&cli.StringFlag{
				Name:        "checkpoint-table",
				Usage:       "DynamoDB table name of checkpoint",
				EnvVars:     []string{"CHECKPOINT_TABLE_NAME"},
				Destination: &args.CheckpointTableName,
			},
			&cli.StringFlag{
				Name:        "postgres-dsn",
				Usage:       "PostgreSQL connection string of relational store",
				EnvVars:     []string{"POSTGRES_DSN"},
				Destination: &args.PostgresDSN,
			},
			&cli.StringFlag{
				Name:        "load-queue-url",
				Usage:       "SQS URL notified after daily aggregate is overwritten",
				EnvVars:     []string{"LOAD_QUEUE_URL"},
				Destination: &args.LoadQueueURL,
			},
			&cli.StringFlag{
				Name:        "sentry-dsn",
				EnvVars:     []string{"SENTRY_DSN"},
				Destination: &args.SentryDSN,
			},
			&cli.StringFlag{
				Name:        "sentry-env",
				EnvVars:     []string{"SENTRY_ENVIRONMENT"},
				Destination: &args.SentryEnv,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Aliases:     []string{"l"},
				Value:       "info",
				EnvVars:     []string{"LOG_LEVEL"},
				Destination: &args.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			internal.SetLogLevel(args.LogLevel)
			if err := internal.InitErrorHandler(args.SentryDSN, args.SentryEnv); err != nil {
				return errors.Wrap(err, "Failed to initialize sentry")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			args.Close()
			internal.FlushError()
			return nil
		},
		Commands: []*cli.Command{
			streamCommand(args),
			aggregateCommand(args),
			loadCommand(args),
			batchCommand(args),
		},
	}
}

func newTopicFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "topic",
		Aliases: []string{"t"},
		Usage:   "Target topic (weather_data, air_quality_data). All topics if not set",
	}
}

func selectTopics(c *cli.Context) ([]models.Topic, error) {
	names := c.StringSlice("topic")
	if len(names) == 0 {
		return models.Topics(), nil
	}

	var topics []models.Topic
	for _, name := range names {
		topic, err := models.ParseTopic(name)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, nil
}
