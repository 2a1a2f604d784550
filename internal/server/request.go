package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	httpmiddleware "github.com/wolfeidau/tenantry/internal/http"
)

const maxRequestBodyBytes = 64 * 1024

// decodeJSON reads a single JSON value from the request body into v,
// rejecting unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", httpmiddleware.ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain a single JSON value", httpmiddleware.ErrBadRequest)
	}
	return nil
}
