package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/domain"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/retry"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func writeOK[T any](w http.ResponseWriter, status int, data T) {
	writeJSON(w, status, domain.OK(data))
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, domain.Response[any]{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	res := domain.Fail[any](message)
	res.Details = details
	writeJSON(w, status, res)
}

// storageError logs err and replies with a user-facing message.
func storageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	slog.ErrorContext(r.Context(), "Storage operation failed", "operation", op, "error", err)

	if retry.IsTransient(err) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, domain.MsgDatabase, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, domain.MsgServer, nil)
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// decode reads a JSON body into dst and validates it. It writes the error
// reply itself and returns false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid request", nil)
			return false
		}
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field: fe.Field(),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		writeError(w, http.StatusBadRequest, validationMessage(details), details)
		return false
	}
	return true
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(details []FieldError) string {
	if len(details) == 0 {
		return "Invalid request"
	}
	return fmt.Sprintf("Invalid value for %s", details[0].Field)
}
