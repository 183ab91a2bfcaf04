package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quizforge/internal/pipeline"
	"quizforge/internal/storage"
	"quizforge/internal/util"
	"quizforge/internal/vector"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError picks the status for a domain error.
func writeError(w http.ResponseWriter, err error) {
	writeErr(w, statusFor(err), err)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrJobNotFound), errors.Is(err, util.ErrNotFound), errors.Is(err, storage.ErrInvalidJobID):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrResultNotReady), errors.Is(err, pipeline.ErrJobFailed):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrResultExpired):
		return http.StatusGone
	case errors.Is(err, pipeline.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrNoValidFiles),
		errors.Is(err, util.ErrInvalidArgument),
		errors.Is(err, vector.ErrDocsetRequired):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrGeneratorTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, util.ErrGeneratorUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "QF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{Code: "QF-API-5020", Message: "Upstream generator unavailable. Retry shortly."}
	case status == http.StatusGatewayTimeout:
		return apiError{Code: "QF-API-5040", Message: "Upstream generator timed out. Retry shortly."}
	case status >= 500:
		switch {
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "QF-DB-5002",
				Message: "Vector store connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "QF-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "QF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "QF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "QF-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
		if errors.Is(err, pipeline.ErrJobFailed) {
			code = "QF-API-4091"
			msg = "Job failed; no result is available."
		}
	case status == http.StatusGone:
		code = "QF-API-4010"
		msg = "Result expired."
	case status == http.StatusRequestEntityTooLarge:
		code = "QF-API-4013"
		msg = "Upload exceeds the size limit."
	case status == http.StatusMethodNotAllowed:
		code = "QF-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoValidFiles):
			msg = "No valid files uploaded."
		case errors.Is(err, pipeline.ErrResultNotReady):
			msg = "Result not ready. Poll the job status and retry."
		case errors.Is(err, vector.ErrDocsetRequired):
			msg = "Job id is required."
		case errors.Is(err, util.ErrNotFound) && strings.Contains(raw, "no indexed documents"):
			msg = "No indexed documents for this job."
		case errors.Is(err, util.ErrInvalidArgument):
			msg = strings.TrimPrefix(err.Error(), util.ErrInvalidArgument.Error()+": ")
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "invalid multipart"):
			msg = "Malformed multipart upload."
		case strings.Contains(raw, "docsets not found"):
			msg = "Docsets not found."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Location")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
