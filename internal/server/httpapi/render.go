package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/corund/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(code string) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeAuth:
		return http.StatusUnauthorized
	case common.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := common.Code(err)
	if code == common.CodeStorage || code == common.CodeInternal {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, statusFor(code), ErrorResponse{Code: code, Message: common.Message(err)})
}

// maxBodyBytes caps every RPC request body.
const maxBodyBytes = 1 << 20

// decode reads a JSON body of at most maxBodyBytes into dst. An empty body
// leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.Validation(fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return common.Validation(err)
}
