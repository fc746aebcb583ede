package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "zomatoclean/internal/errors"
)

const defaultMaxBodySize = 1 << 20

// RequestValidator decodes JSON request bodies and checks their struct tags
type RequestValidator struct {
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewRequestValidator creates a validator that reports problems through errorHandler
func NewRequestValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RequestValidator {
	v := validator.New()

	// report JSON field names, not Go ones
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validate:     v,
		logger:       logger.With(slog.String("component", "request_validator")),
		errorHandler: errorHandler,
		maxBodySize:  defaultMaxBodySize,
	}
}

// Struct checks v against its validate tags
func (rv *RequestValidator) Struct(v interface{}) []apierrors.ValidationError {
	err := rv.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []apierrors.ValidationError{{Field: "", Message: err.Error()}}
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return out
}

// DecodeAndValidate reads the JSON body into v and validates it. An empty
// body leaves v at its zero value. On failure the problem response has
// already been written and false is returned.
func (rv *RequestValidator) DecodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body != nil {
		dec := json.NewDecoder(io.LimitReader(r.Body, rv.maxBodySize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			rv.logger.WarnContext(r.Context(), "invalid request body",
				slog.String("error", err.Error()),
				slog.String("path", r.URL.Path))
			rv.errorHandler.HandleValidation(w, r, []apierrors.ValidationError{
				{Field: "body", Message: fmt.Sprintf("request body is not valid JSON: %v", err)},
			})
			return false
		}
	}

	if fields := rv.Struct(v); len(fields) > 0 {
		rv.errorHandler.HandleValidation(w, r, fields)
		return false
	}
	return true
}

// ContentTypeValidator rejects bodies whose Content-Type is not one of contentTypes
func ContentTypeValidator(handler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength == 0 || r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			handler.HandleValidation(w, r, []apierrors.ValidationError{{
				Field:   "Content-Type",
				Message: fmt.Sprintf("unsupported content type %q, expected one of: %s", contentType, strings.Join(contentTypes, ", ")),
			}})
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}
