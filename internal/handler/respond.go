package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"makemodel/internal/apperr"
	"makemodel/internal/mw"
	"makemodel/internal/model"
	"makemodel/internal/store"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps err to its status code. Internal errors are logged and
// replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.KindInternal, err, "unexpected error")
	}
	meta := apperr.MetadataFor(typed.Kind())

	body := errorBody{Code: string(typed.Kind()), Message: typed.Message(), Details: typed.Details()}
	if typed.Kind() == apperr.KindInternal {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		body.Message = meta.PublicMessage
		body.Details = nil
	}
	writeJSON(w, meta.HTTPStatus, map[string]errorBody{"error": body})
}

// decodeJSON reads a single JSON object into dest and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body").
			WithDetails(map[string]string{"body": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return apperr.Wrap(apperr.KindValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = validationMessage(fe)
	}
	return apperr.New(apperr.KindValidation, "validation failed").WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a UUID"
	}
	return "is invalid"
}

func actorFrom(r *http.Request) (model.Actor, error) {
	actor, ok := mw.ActorFromContext(r.Context())
	if !ok {
		return model.Actor{}, apperr.New(apperr.KindUnauthorized, "authentication required")
	}
	return actor, nil
}

// pageFrom reads page and limit query parameters.
func pageFrom(r *http.Request) (store.Page, error) {
	q := r.URL.Query()
	number, err := queryInt(q.Get("page"), 1)
	if err != nil {
		return store.Page{}, apperr.New(apperr.KindValidation, "page must be a positive integer").
			WithDetails(map[string]string{"page": "must be a positive integer"})
	}
	limit, err := queryInt(q.Get("limit"), store.DefaultPageLimit)
	if err != nil {
		return store.Page{}, apperr.New(apperr.KindValidation, "limit must be a positive integer").
			WithDetails(map[string]string{"limit": "must be a positive integer"})
	}
	return store.NewPage(number, limit), nil
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
