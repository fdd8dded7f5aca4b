package handler

import (
	"io"
	"net/http"

	"docchat/internal/chat"
	"docchat/internal/gateway/middleware"
	"docchat/internal/proxy"
	"docchat/internal/uistream"
)

const invalidRequestBody = "Invalid request body"

// HandleChat serves POST /api/chat: admission, validation, then the
// completion streamed back as a UI message stream.
func (s *Service) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.admit(w, r, RouteChat) {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.log.Printf("chat handler: read body from %s: %v", middleware.ClientIDFrom(r.Context()), err)
		http.Error(w, invalidRequestBody, http.StatusBadRequest)
		s.metrics.RecordRequest(RouteChat, http.StatusBadRequest)
		return
	}
	req, err := chat.Validate(raw)
	if err != nil {
		s.log.Printf("chat handler: invalid request from %s: %v", middleware.ClientIDFrom(r.Context()), err)
		http.Error(w, invalidRequestBody, http.StatusBadRequest)
		s.metrics.RecordRequest(RouteChat, http.StatusBadRequest)
		return
	}

	sse := uistream.NewSSE(w)
	stream := uistream.New(sse)
	err = s.streamer.Stream(r.Context(), req, stream.Delta)
	switch {
	case err == nil:
		if ferr := stream.Finish(); ferr != nil {
			s.log.Printf("chat handler: finish stream: %v", ferr)
		}
		s.metrics.RecordRequest(RouteChat, http.StatusOK)
	case !sse.Committed():
		writeJSONError(w, http.StatusInternalServerError, proxy.ErrorMessage)
		s.metrics.RecordRequest(RouteChat, http.StatusInternalServerError)
	default:
		// The caller may already be gone; nothing more to report then.
		_ = stream.Fail(proxy.ErrorMessage)
		s.metrics.RecordRequest(RouteChat, http.StatusOK)
	}
}
