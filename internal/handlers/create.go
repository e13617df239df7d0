package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"hypercast/internal/content"
)

type createRequest struct {
	Input *string `json:"input"`
}

// CreateEpisode validates a submission and hands it to the job runner. It
// answers 202 as soon as the job is accepted; the outcome is never reported.
func (h *Handlers) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	if h.maxRequestSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing input parameter")
		return
	}
	if req.Input == nil {
		writeError(w, http.StatusBadRequest, "Missing input parameter")
		return
	}

	input, err := h.validator.Validate(r.Context(), *req.Input)
	if err != nil {
		var validationErr *content.ValidationError
		var fetchErr *content.FetchError
		switch {
		case errors.As(err, &validationErr), errors.As(err, &fetchErr):
			h.logger.Warn().Err(err).Msg("Input validation error")
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Msg("Error validating input")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := h.runner.Submit(r.Context(), input.Content, input.SourceURL); err != nil {
		h.logger.Error().Err(err).Msg("Error initiating processing")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Request accepted for processing",
		"status":  "processing",
	})
}
