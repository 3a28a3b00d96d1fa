package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey for values set by the auth middleware
type contextKey string

var (
	UserContextKey contextKey = "user_id"
	RoleContextKey contextKey = "role"
)

// ServiceRole is the token role that may run batches for every user.
const ServiceRole = "service_role"

// GetUserIDFromContext haalt de user ID op die door de middleware in de context is gezet
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(UserContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing or invalid user ID in context")
	}
	return userID, nil
}

// IsServiceRole reports whether the request was authenticated with a service token.
func IsServiceRole(ctx context.Context) bool {
	role, _ := ctx.Value(RoleContextKey).(string)
	return role == ServiceRole
}

// WriteJSON schrijft een standaard JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(
			"failed to write JSON response",
			zap.Error(err),
			zap.Int("status", status),
			zap.String("component", "api"),
		)
	}
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteJSONError schrijft een standaard JSON error response
func WriteJSONError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	WriteJSON(w, status, ErrorResponse{Success: false, Error: message}, logger)
}
