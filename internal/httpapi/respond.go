package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cafepanel/internal/store"
)

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ackResponse struct {
	OK bool `json:"ok"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeRequest reads one JSON object into target. Unknown fields, trailing
// data and bodies over 1 MiB are rejected with 400.
func decodeRequest(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "invalid_json", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload: "+err.Error())
		return false
	}
	if decoder.More() {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload: trailing data")
		return false
	}
	return true
}

// writeStoreError maps store sentinels onto statuses; anything else is
// logged and reported as a 500.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, store.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "category_in_use", "category still has products")
	case errors.Is(err, store.ErrTableOccupied):
		writeError(w, http.StatusConflict, "table_occupied", "table is occupied")
	case errors.Is(err, store.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, store.ErrUnknownReference):
		writeError(w, http.StatusUnprocessableEntity, "unknown_reference", "referenced record does not exist")
	default:
		requestID := ""
		if entry := accessEntryFrom(r.Context()); entry != nil {
			requestID = entry.requestID
		}
		log.Printf("store error method=%s path=%s request_id=%s err=%v", r.Method, r.URL.Path, requestID, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isInvalidCredentials(err error) bool {
	return errors.Is(err, store.ErrInvalidCredentials)
}
