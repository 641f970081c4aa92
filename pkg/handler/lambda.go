package handler

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/m-mizutani/envlake/internal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger is common logger gateway
var Logger = internal.Logger

// Handler has main logic of the lambda function
type Handler func(context.Context, *Arguments) error

// StartLambda initialize AWS Lambda and invokes handler
func StartLambda(handler Handler) {
	Logger.SetLevel(logrus.InfoLevel)
	internal.SetJSONFormat()

	lambda.Start(func(ctx context.Context, event interface{}) error {
		defer internal.FlushError()

		var args Arguments
		if err := args.BindEnvVars(); err != nil {
			internal.HandleError(err)
			return err
		}

		return runHandler(ctx, &args, event, handler)
	})
}

func runHandler(ctx context.Context, args *Arguments, event interface{}, handler Handler) error {
	internal.SetLogLevel(args.LogLevel)
	if err := internal.InitErrorHandler(args.SentryDSN, args.SentryEnv); err != nil {
		Logger.WithError(err).Warn("Failed to initialize sentry")
	}

	Logger.WithFields(logrus.Fields{"config": args.Config, "event": event}).Debug("Start handler")
	args.Event = event
	defer args.Close()

	if err := handler(ctx, args); err != nil {
		Logger.WithFields(logrus.Fields{"config": args.Config, "event": event}).Error("Failed Handler")
		err = errors.Wrap(err, "Failed Handler")
		internal.HandleError(err)
		return err
	}

	return nil
}
