package http

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/example/akiya-reservations/internal/logging"
)

func defaultLogger(logger *logrus.Logger) *logrus.Logger {
	if logger != nil {
		return logger
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return discard
}

func handlerLogger(ctx context.Context, fallback *logrus.Logger, handlerName, operation string, fields logrus.Fields) *logrus.Entry {
	entry := logging.FromContext(ctx)
	if entry == nil {
		entry = logrus.NewEntry(defaultLogger(fallback))
	}

	merged := logrus.Fields{"handler": handlerName}
	if operation != "" {
		merged["operation"] = operation
	}
	for key, value := range fields {
		merged[key] = value
	}
	return entry.WithFields(merged)
}
