package internal

import (
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

var sentryEnabled = false

// InitErrorHandler enables sentry reporting if dsn is not empty.
func InitErrorHandler(dsn, env string) error {
	if dsn == "" {
		return nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	}); err != nil {
		return err
	}

	sentryEnabled = true
	return nil
}

// HandleError sends error to sentry if sentry configuration is available
func HandleError(err error) {
	HandleErrorWithFields(err, nil)
}

// HandleErrorWithFields is HandleError with additional log fields
func HandleErrorWithFields(err error, fields logrus.Fields) {
	r := Logger.WithError(err)
	if fields != nil {
		r = r.WithFields(fields)
	}

	if sentryEnabled {
		eventID := sentry.CaptureException(err)
		if eventID != nil {
			r = r.WithField("sentry eventID", *eventID)
		}
	}

	r.Error("Error")
}

// FlushError flushs error to sentry
func FlushError() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
