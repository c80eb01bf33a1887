package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docatom/internal/ingest"
	"github.com/dgallion1/docatom/internal/processor"
)

// handleProcess chunks one upload synchronously and returns every chunk.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.parseSingleUpload(w, r)
	if !ok {
		return
	}

	chunks := []ingest.Chunk{}
	for c, err := range s.orchestrator.Processor().ProcessBytes(r.Context(), filename, data) {
		if err != nil {
			var srcErr *processor.SourceError
			switch {
			case errors.As(err, &srcErr):
				jsonError(w, srcErr.Err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				jsonError(w, "request canceled", http.StatusServiceUnavailable)
			default:
				s.log.Error("process failed", "filename", filename, "error", err)
				jsonError(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		chunks = append(chunks, c)
	}

	docID := ""
	if len(chunks) > 0 {
		docID = chunks[0].DocumentID
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"filename": filename,
		"doc_id":   docID,
		"count":    len(chunks),
		"chunks":   chunks,
	})
}
