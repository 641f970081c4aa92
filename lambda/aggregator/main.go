package main

import (
	"context"

	"github.com/m-mizutani/envlake/pkg/handler"
	"github.com/m-mizutani/envlake/pkg/models"
)

// Event is optional input of scheduled invocation. Empty Topics means all
// topics.
type Event struct {
	Topics []string `json:"topics"`
}

func main() {
	handler.StartLambda(Handler)
}

// Handler is exported for testing
func Handler(ctx context.Context, args *handler.Arguments) error {
	var event Event
	if args.Event != nil {
		// Scheduled event of CloudWatch has no topics field.
		if err := args.BindEvent(&event); err != nil {
			return err
		}
	}

	topics := models.Topics()
	if len(event.Topics) > 0 {
		topics = nil
		for _, name := range event.Topics {
			topic, err := models.ParseTopic(name)
			if err != nil {
				return err
			}
			topics = append(topics, topic)
		}
	}

	aggregator, err := args.Aggregator()
	if err != nil {
		return err
	}

	_, err = aggregator.RunAll(ctx, topics)
	return err
}
