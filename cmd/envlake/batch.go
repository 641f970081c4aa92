package main

import (
	"context"

	"github.com/m-mizutani/envlake/pkg/batch"
	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
)

func aggregateCommand(args *handler.Arguments) *cli.Command {
	return &cli.Command{
		Name:  "aggregate",
		Usage: "Recompute daily aggregates from whole raw lake",
		Flags: []cli.Flag{newTopicFlag()},
		Action: func(c *cli.Context) error {
			topics, err := selectTopics(c)
			if err != nil {
				return err
			}
			_, err = runAggregate(context.Background(), args, topics)
			return err
		},
	}
}

func loadCommand(args *handler.Arguments) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Replace serving tables by daily aggregates",
		Flags: []cli.Flag{newTopicFlag()},
		Action: func(c *cli.Context) error {
			topics, err := selectTopics(c)
			if err != nil {
				return err
			}
			_, err = runLoad(context.Background(), args, topics)
			return err
		},
	}
}

func batchCommand(args *handler.Arguments) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Run aggregate and then load",
		Flags: []cli.Flag{newTopicFlag()},
		Action: func(c *cli.Context) error {
			topics, err := selectTopics(c)
			if err != nil {
				return err
			}

			ctx := context.Background()
			results, aggErr := runAggregate(ctx, args, topics)

			// Serving table is kept as is if aggregate was not overwritten.
			var written []models.Topic
			for _, result := range results {
				if result.Written {
					written = append(written, result.Topic)
				}
			}

			if _, err := runLoad(ctx, args, written); err != nil {
				return err
			}
			return aggErr
		},
	}
}

func runAggregate(ctx context.Context, args *handler.Arguments, topics []models.Topic) ([]*batch.AggregateResult, error) {
	aggregator, err := args.Aggregator()
	if err != nil {
		return nil, err
	}

	return aggregator.RunAll(ctx, topics)
}

func runLoad(ctx context.Context, args *handler.Arguments, topics []models.Topic) ([]*batch.LoadResult, error) {
	if len(topics) == 0 {
		return nil, nil
	}

	loader, err := args.Loader(ctx)
	if err != nil {
		return nil, err
	}

	var results []*batch.LoadResult
	for _, topic := range topics {
		result, err := loader.Load(ctx, topic)
		if err != nil {
			return results, errors.Wrapf(err, "Failed to load %s", topic)
		}

		logger.WithFields(logrus.Fields{
			"topic":   result.Topic,
			"table":   result.Table,
			"count":   result.Count,
			"matched": result.Matched,
		}).Info("Loaded")
		results = append(results, result)
	}

	return results, nil
}
