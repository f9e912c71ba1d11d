package application

import (
	"context"
	"errors"
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

func serviceLogger(ctx context.Context, base *logrus.Logger, serviceName, operation string, fields logrus.Fields) *logrus.Entry {
	entry := logging.FromContext(ctx)
	if entry == nil {
		entry = logrus.NewEntry(defaultLogger(base))
	}

	merged := logrus.Fields{"service": serviceName}
	if operation != "" {
		merged["operation"] = operation
	}
	for key, value := range fields {
		merged[key] = value
	}
	return entry.WithContext(ctx).WithFields(merged)
}

func logOutcome(logger *logrus.Entry, err error, failure, success string) {
	if err != nil {
		logger.WithError(err).WithField("error_kind", ErrorKind(err)).Error(failure)
		return
	}
	logger.Info(success)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, ErrDraftNotFound):
		return "draft_not_found"
	case errors.Is(err, ErrNoListingSelected):
		return "no_listing_selected"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
