package response

import (
	"encoding/json"
	"net/http"

	"school-payment-service/errors"
	"school-payment-service/logger"
	"school-payment-service/models"
	"school-payment-service/services/gateway"
)

// StandardResponse represents the standard API response structure
type StandardResponse struct {
	Status     string             `json:"status"`
	Message    string             `json:"message,omitempty"`
	Data       interface{}        `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Error      string             `json:"error,omitempty"`
	Details    interface{}        `json:"details,omitempty"`
}

// SuccessResponse sends a success response with given status code, message, and data
func SuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	SendJSON(w, statusCode, StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// Paginated sends one page of a list. data is always encoded, even when empty.
func Paginated(w http.ResponseWriter, data interface{}, p models.Pagination) {
	SendJSON(w, http.StatusOK, struct {
		Status     string            `json:"status"`
		Data       interface{}       `json:"data"`
		Pagination models.Pagination `json:"pagination"`
	}{Status: "success", Data: data, Pagination: p})
}

// ErrorResponse sends an error response with given status code and error message
func ErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	SendJSON(w, statusCode, StandardResponse{
		Status: "error",
		Error:  errorMsg,
	})
}

// Error maps an application error to its HTTP status. Upstream failures carry
// the provider's response body as details.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := StandardResponse{Status: "error", Error: errors.MessageOf(err)}

	if status == http.StatusBadGateway {
		var upErr *gateway.UpstreamError
		if errors.As(err, &upErr) {
			resp.Details = upErr.Details()
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	SendJSON(w, status, resp)
}

// StatusFor returns the HTTP status code for err's Kind.
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.Invalid:
		return http.StatusBadRequest
	case errors.NotFound:
		return http.StatusNotFound
	case errors.Conflict:
		return http.StatusConflict
	case errors.Unauthorized:
		return http.StatusUnauthorized
	case errors.Forbidden:
		return http.StatusForbidden
	case errors.Upstream:
		return http.StatusBadGateway
	case errors.TooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// SendJSON encodes and sends a JSON response
func SendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
