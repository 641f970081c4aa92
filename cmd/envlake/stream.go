package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/m-mizutani/envlake/pkg/api"
	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/m-mizutani/envlake/pkg/status"
	"github.com/m-mizutani/envlake/pkg/stream"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

const shutdownTimeout = 5 * time.Second

func streamCommand(args *handler.Arguments) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Run stream pipelines until SIGINT or SIGTERM",
		Flags: []cli.Flag{
			newTopicFlag(),
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Aliases: []string{"k"},
				Usage:   "Kafka broker addresses",
				EnvVars: []string{"KAFKA_BROKERS"},
			},
			&cli.IntFlag{
				Name:        "kafka-partition",
				EnvVars:     []string{"KAFKA_PARTITION"},
				Destination: &args.KafkaPartition,
			},
			&cli.DurationFlag{
				Name:        "kafka-max-wait",
				Value:       time.Second,
				EnvVars:     []string{"KAFKA_MAX_WAIT"},
				Destination: &args.KafkaMaxWait,
			},
			&cli.BoolFlag{
				Name:        "start-from-earliest",
				Usage:       "Read from the first offset when no checkpoint exists",
				EnvVars:     []string{"START_FROM_EARLIEST"},
				Destination: &args.StartFromEarliest,
			},
			&cli.IntFlag{
				Name:        "max-batch-records",
				Value:       10000,
				Usage:       "Close micro batch window at this number of messages (0: no limit)",
				EnvVars:     []string{"MAX_BATCH_RECORDS"},
				Destination: &args.MaxBatchRecords,
			},
			&cli.DurationFlag{
				Name:        "trigger-interval",
				Value:       10 * time.Second,
				EnvVars:     []string{"TRIGGER_INTERVAL"},
				Destination: &args.TriggerInterval,
			},
			&cli.DurationFlag{
				Name:        "retry-initial-interval",
				Value:       time.Second,
				EnvVars:     []string{"RETRY_INITIAL_INTERVAL"},
				Destination: &args.RetryInitialInterval,
			},
			&cli.DurationFlag{
				Name:        "retry-max-interval",
				Value:       time.Minute,
				EnvVars:     []string{"RETRY_MAX_INTERVAL"},
				Destination: &args.RetryMaxInterval,
			},
			&cli.StringFlag{
				Name:        "status-addr",
				Value:       "127.0.0.1:10080",
				Usage:       "Listen address of status API (empty: disabled)",
				EnvVars:     []string{"STATUS_ADDR"},
				Destination: &args.StatusAddr,
			},
		},
		Action: func(c *cli.Context) error {
			args.KafkaBrokers = c.StringSlice("kafka-brokers")
			topics, err := selectTopics(c)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runStream(ctx, args, topics, status.NewRegistry())
		},
	}
}

// runStream runs one pipeline per topic and status API until ctx is done or
// status API fails. Pipelines are independent and a stopped pipeline does not
// stop others.
func runStream(ctx context.Context, args *handler.Arguments, topics []models.Topic, reg *status.Registry) error {
	var pipelines []*stream.Pipeline
	for _, topic := range topics {
		p, err := args.Pipeline(ctx, topic, reg)
		if err != nil {
			return errors.Wrapf(err, "Failed to set up pipeline of %s", topic)
		}
		pipelines = append(pipelines, p)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(pipelines)+1)

	for _, p := range pipelines {
		wg.Add(1)
		go func(p *stream.Pipeline) {
			defer wg.Done()
			logger.WithField("pipeline", p.Name()).Info("Start pipeline")
			if err := p.Run(ctx); err != nil {
				err = errors.Wrapf(err, "Pipeline %s stopped", p.Name())
				logger.WithError(err).Error("Pipeline stopped with error")
				errCh <- err
			}
			logger.WithField("pipeline", p.Name()).Info("Pipeline stopped")
		}(p)
	}

	var server *http.Server
	if args.StatusAddr != "" {
		server = &http.Server{
			Addr:    args.StatusAddr,
			Handler: api.NewEngine(reg),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.WithField("addr", server.Addr).Info("Start status API")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- errors.Wrap(err, "Status API stopped")
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.WithFields(logrus.Fields{"pipelines": len(pipelines)}).Info("Shutting down")

	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown status API")
		}
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}
