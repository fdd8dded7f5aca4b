package handler

import (
	"errors"
	"io"
	"net/http"

	"docchat/internal/extract"
	"docchat/internal/proxy"
)

// HandleExtract serves POST /api/extract: a multipart upload in field "file"
// answered with its plain text.
func (s *Service) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.admit(w, r, RouteExtract) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "File too large")
			s.metrics.RecordRequest(RouteExtract, http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, http.StatusBadRequest, "No file uploaded")
		s.metrics.RecordRequest(RouteExtract, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "No file uploaded")
		s.metrics.RecordRequest(RouteExtract, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.log.Printf("extract handler: read upload: %v", err)
		writeJSONError(w, http.StatusInternalServerError, proxy.ErrorMessage)
		s.metrics.RecordRequest(RouteExtract, http.StatusInternalServerError)
		return
	}

	text, err := s.extractor.Extract(r.Context(), data)
	if err != nil {
		s.log.Printf("extract handler: %d bytes: %v", len(data), err)
		if errors.Is(err, extract.ErrExtraction) {
			writeJSONError(w, http.StatusUnprocessableEntity, "Failed to parse PDF")
			s.metrics.RecordRequest(RouteExtract, http.StatusUnprocessableEntity)
			return
		}
		writeJSONError(w, http.StatusInternalServerError, proxy.ErrorMessage)
		s.metrics.RecordRequest(RouteExtract, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
	s.metrics.RecordRequest(RouteExtract, http.StatusOK)
}
