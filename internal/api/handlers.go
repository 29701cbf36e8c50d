package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cametumbling/badge-crawler/internal/apierr"
	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/badge"
	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/ingest"
)

// maxRequestBody bounds every request body this server reads directly
// (WorkReport JSON, submitted URLs, badge image bytes).
const maxRequestBody = 8 * 1024 * 1024

// writeErr maps a classified *apierr.Error to its HTTP status (spec.md
// §7); anything else is an unclassified store/internal failure and
// answers 500.
func writeErr(w http.ResponseWriter, err error) {
	var e *apierr.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case apierr.KindAuthFailure:
			w.WriteHeader(http.StatusUnauthorized)
		case apierr.KindBadInput:
			w.WriteHeader(http.StatusBadRequest)
		case apierr.KindConflict:
			w.WriteHeader(http.StatusConflict)
		case apierr.KindNotFound:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	token, err := s.auth.CreateAccount(r.Context(), string(body))
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token))
}

func (s *Server) handleGetWork(w http.ResponseWriter, r *http.Request) {
	apiKeyHash := apiKeyHashFromContext(r.Context())
	rawURL, ok, err := s.queue.Dequeue(r.Context(), apiKeyHash)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rawURL))
}

func (s *Server) handlePostWork(w http.ResponseWriter, r *http.Request) {
	var report ingest.WorkReport
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&report); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	apiKeyHash := apiKeyHashFromContext(r.Context())
	if err := s.ingest.Process(r.Context(), apiKeyHash, report); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	rawURL := string(body)
	if !codec.URLValid(rawURL) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := codec.Domain(rawURL); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.queue.Submit(r.Context(), rawURL); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.proj.Build(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g)
}

func (s *Server) handleGetBadge(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "sha256")
	data, mime, err := s.badges.Get(hash)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePostBadge(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "sha256")
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.badges.Put(hash, data); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Statistics is the GET /statistics response body (spec.md §6): the
// coordinator's present queue depth, page counts, and a top-10
// highest-first leaderboard.
type Statistics struct {
	Queue        int64                    `json:"queue"`
	VisitedPages int64                    `json:"visitedPages"`
	KnownPages   int64                    `json:"knownPages"`
	Leaderboard  []authn.LeaderboardEntry `json:"leaderboard"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	queueLen, err := s.db.LLen(ctx, graph.PagesQueue())
	if err != nil {
		writeErr(w, err)
		return
	}
	visited, err := s.db.SCard(ctx, graph.PagesVisited())
	if err != nil {
		writeErr(w, err)
		return
	}
	known, err := s.db.SCard(ctx, graph.Pages())
	if err != nil {
		writeErr(w, err)
		return
	}
	board, err := s.auth.Leaderboard(ctx, 10)
	if err != nil {
		writeErr(w, err)
		return
	}

	stats := Statistics{
		Queue:        queueLen,
		VisitedPages: visited,
		KnownPages:   known,
		Leaderboard:  board,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
