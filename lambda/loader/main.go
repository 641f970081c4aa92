package main

import (
	"context"

	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = handler.Logger

func main() {
	handler.StartLambda(Handler)
}

// Handler is exported for testing
func Handler(ctx context.Context, args *handler.Arguments) error {
	records, err := args.DecapSQSEvent()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	loader, err := args.Loader(ctx)
	if err != nil {
		return err
	}

	for _, record := range records {
		var q models.LoadQueue
		if err := record.Bind(&q); err != nil {
			return err
		}

		logger.WithField("queue", q).Info("Run loader")

		result, err := loader.LoadObject(ctx, q.Topic, q.Aggregate)
		if err != nil {
			return errors.Wrapf(err, "Failed to load %s", q.Aggregate.Path())
		}

		log := logger.WithFields(logrus.Fields{
			"topic": result.Topic,
			"table": result.Table,
			"count": result.Count,
		})
		if q.RowCount != int(result.Count) {
			log.WithField("queued", q.RowCount).Warn("Row count differs from LoadQueue")
		} else {
			log.Info("Loaded")
		}
	}

	return nil
}
