package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/siherrmann/docgraph/core/retrieval"
	"github.com/siherrmann/docgraph/model"
)

// Asker is the part of the facade the HTTP layer needs.
type Asker interface {
	Ask(ctx context.Context, query string, userID string) (*model.QueryResult, error)
	AskStream(ctx context.Context, query string, userID string, emit func(retrieval.Event) error) error
}

// Server exposes the retrieval pipeline over HTTP. Ingestion stays a
// backend concern and is not exposed here.
type Server struct {
	asker Asker
	mux   *http.ServeMux
	log   *slog.Logger
}

type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// NewServer creates the HTTP handler set.
func NewServer(asker Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{asker: asker, mux: http.NewServeMux(), log: logger}
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("POST /query/stream", s.handleQueryStream)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving HTTP until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("Server shutdown failed", slog.String("error", err.Error()))
		}
	}()

	s.log.Info("Server listening", slog.String("addr", addr))
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	request, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	result, err := s.asker.Ask(r.Context(), request.Query, request.UserID)
	if err != nil {
		s.log.Error("Query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.Error("Response encoding failed", slog.String("error", err.Error()))
	}
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	request, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := s.asker.AskStream(r.Context(), request.Query, request.UserID, func(event retrieval.Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if errors.Is(err, retrieval.ErrStopped) {
			s.log.Info("Stream stopped by client")
			return
		}
		// The stream already carried an error event; nothing useful can be
		// written to the response at this point.
		s.log.Error("Stream query failed", slog.String("error", err.Error()))
	}
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*queryRequest, bool) {
	request := &queryRequest{}
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if request.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return nil, false
	}
	if request.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id must not be empty")
		return nil, false
	}
	return request, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
