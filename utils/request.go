package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps inbound request bodies.
const MaxBodyBytes = 1 << 20

// DecodeJSONRequest decodes JSON from HTTP request body into the provided interface.
func DecodeJSONRequest(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// ReadBody returns the raw request body, capped at MaxBodyBytes. On error
// the bytes read so far are returned alongside it; a body over the cap
// yields an error wrapping *http.MaxBytesError.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return body, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}
