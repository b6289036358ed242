package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"billing-service/internal/domain"
)

func sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

// sendDomainError maps the error taxonomy to HTTP statuses. Anything outside
// the taxonomy is a genuine infrastructure failure and becomes a 500.
func sendDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		authErr       *domain.AuthenticationError
		notFoundErr   *domain.NotFoundError
		fundsErr      *domain.InsufficientFundsError
		configErr     *domain.ConfigError
		gatewayErr    *domain.GatewayError
		rateErr       *domain.RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		sendError(w, http.StatusBadRequest, "validation failed", err)
	case errors.As(err, &authErr):
		sendError(w, http.StatusBadRequest, "authentication failed", err)
	case errors.As(err, &notFoundErr):
		sendError(w, http.StatusNotFound, "not found", err)
	case errors.As(err, &fundsErr):
		sendError(w, http.StatusBadRequest, "insufficient funds", err)
	case errors.As(err, &configErr):
		sendError(w, http.StatusBadRequest, "configuration error", err)
	case errors.As(err, &gatewayErr):
		sendError(w, http.StatusBadRequest, "gateway error", err)
	case errors.As(err, &rateErr):
		sendError(w, http.StatusTooManyRequests, "rate limited", err)
	default:
		sendError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// principalOr401 pulls the authenticated principal set by the auth middleware.
func principalOr401(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := domain.PrincipalFrom(r.Context())
	if !ok {
		sendError(w, http.StatusUnauthorized, "unauthorized", nil)
		return domain.Principal{}, false
	}
	return p, true
}
