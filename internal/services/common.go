package services

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
)

var tracer = otel.Tracer("venuepermits/internal/services")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// validateRequest runs the struct tags of req and reports failures as an
// invalid-request error keyed by JSON field name.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.CodeInvalid, "invalid request", err)
	}
	meta := make(map[string]string, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		meta[fe.Field()] = fe.Tag()
		fields = append(fields, fe.Field())
	}
	return apperrors.WithMetadata(apperrors.CodeInvalid, "invalid fields: "+strings.Join(fields, ", "), meta)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// removeObjects deletes the blobs of cascaded documents. The records are
// already gone, so failures are logged and not returned.
func removeObjects(ctx context.Context, store interfaces.DocumentStore, logger *slog.Logger, keys []string) {
	if store == nil || len(keys) == 0 {
		return
	}
	if err := store.Delete(ctx, keys...); err != nil {
		logger.WarnContext(ctx, "failed to remove document objects", "keys", keys, "error", err)
	}
}
