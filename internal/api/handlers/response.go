package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/estatehub/marketplace/backend/internal/api/middleware"
	"github.com/estatehub/marketplace/backend/internal/domain/entities"
	"github.com/estatehub/marketplace/backend/internal/domain/repositories"
	"github.com/estatehub/marketplace/backend/internal/infrastructure/observability"
	apperrors "github.com/estatehub/marketplace/backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every API response
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
	Details map[string]string   `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("failed to encode response")
	}
}

func respondWithData(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	respondWithJSON(w, statusCode, envelope{Success: true, Message: message, Data: data})
}

// statusFor maps an error kind to its HTTP status
func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeNotAuthorized:
		return http.StatusForbidden
	case apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeInvalidRating,
		apperrors.ErrorTypeInvalidAmount,
		apperrors.ErrorTypeInvalidSlot:
		return http.StatusBadRequest
	case apperrors.ErrorTypeInvalidTransition,
		apperrors.ErrorTypeDuplicateActiveOffer,
		apperrors.ErrorTypeSlotConflict,
		apperrors.ErrorTypeAlreadyFavorited,
		apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondWithError writes the error envelope. Internal causes are logged and
// never sent to the client.
func respondWithError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("unexpected error", err)
	}
	status := statusFor(appErr.Type)

	body := &errorBody{Type: appErr.Type, Message: appErr.Message, Details: appErr.Details}
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("operation", operation).Msg("request failed")
		body = &errorBody{Type: appErr.Type, Message: http.StatusText(status)}
	} else {
		observability.RecordDomainRejection(r.Context(), operation, string(appErr.Type))
	}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}

	respondWithJSON(w, status, envelope{Success: false, Message: body.Message, Error: body})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return apperrors.NewValidationError("malformed JSON body")
		}
		return apperrors.NewValidationError("invalid request payload: " + err.Error())
	}
	return nil
}

func actorOf(r *http.Request) entities.Actor {
	return middleware.ActorFromContext(r.Context())
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(key + " must be an integer")
	}
	return v, nil
}

func queryFloat(r *http.Request, key string, required bool) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		if required {
			return 0, apperrors.NewValidationError(key + " is required")
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.NewValidationError(key + " must be a number")
	}
	return v, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.NewValidationError(key + " must be an RFC3339 timestamp")
	}
	return &t, nil
}

func listFilter(r *http.Request) (repositories.ListFilter, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return repositories.ListFilter{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return repositories.ListFilter{}, err
	}
	return repositories.ListFilter{Limit: limit, Offset: offset}, nil
}
