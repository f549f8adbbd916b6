// Package handlers provides the JSON HTTP handlers for pocketledger.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "pocketledger/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("[HTTP] Encoding response: %v", err)
		}
	}
}

// respondError maps an error onto its HTTP status and writes a JSON error
// body. Internal causes are logged, never sent to the client.
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	message := err.Error()

	switch {
	case apperrors.IsProvider(err):
		// Provider failures carry the upstream message through to the client
		log.Printf("[HTTP] Provider failure: %v", err)
	case status >= 500:
		log.Printf("[HTTP] %d: %v", status, err)
		message = "internal error"
	default:
		if appErr, ok := err.(*apperrors.AppError); ok {
			message = appErr.Message
		}
	}

	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes and validates a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.Validation(validationMessage(err))
	}
	return nil
}

// validationMessage turns the first validator error into a readable message.
func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "validation failed"
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// urlID extracts a numeric id from the chi route parameter.
func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid " + name)
	}
	return id, nil
}
