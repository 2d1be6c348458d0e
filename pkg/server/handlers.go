package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/usecase/memory"
	"github.com/marvin-labs/memoria/pkg/usecase/tweet"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type listResponse struct {
	Memories   []*model.Memory `json:"memories"`
	Pagination model.Page      `json:"pagination"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cacheKey := r.URL.RawQuery
	if cached, ok := s.listCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, listResponse{
			Memories:   cached.Memories,
			Pagination: cached.Pagination,
		})
		return
	}

	out, err := s.memories.List(r.Context(), opts)
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if out.Memories == nil {
		out.Memories = []*model.Memory{}
	}
	s.listCache.Set(cacheKey, out)

	writeJSON(w, http.StatusOK, listResponse{
		Memories:   out.Memories,
		Pagination: out.Pagination,
	})
}

type searchResponse struct {
	Memories []*model.ScoredMemory `json:"memories"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	memType, tags, minAlignment, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := s.memories.Search(r.Context(), memory.SearchOptions{
		Query:        query,
		Limit:        limit,
		Type:         memType,
		Tags:         tags,
		MinAlignment: minAlignment,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if results == nil {
		results = []*model.ScoredMemory{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Memories: results})
}

// createRequest carries only caller-settable fields. The alignment bypass is
// reserved for the tweet processor and is not reachable over HTTP.
type createRequest struct {
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Source   string         `json:"source"`
	Tags     []string       `json:"tags"`
	Metadata model.Metadata `json:"metadata"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := s.memories.Create(r.Context(), memory.CreateInput{
		Content:  req.Content,
		Type:     model.MemoryType(req.Type),
		Source:   req.Source,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) || errors.Is(err, model.ErrInvalidMemoryType) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if out.Rejected {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"score":       out.Score,
			"explanation": out.Explanation,
		})
		return
	}

	s.listCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]any{"id": out.ID})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.memories.Delete(r.Context(), model.MemoryID(id)); err != nil {
		if errors.Is(err, model.ErrMemoryNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.listCache.Purge()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleProcessTweets(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	minEngagement, err := floatParam(r, "min_engagement")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := tweet.ProcessOptions{Limit: limit}
	if minEngagement != nil {
		opts.MinEngagement = *minEngagement
	}

	result, err := s.tweets.Process(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "success",
		"processed_count": result.ProcessedCount,
		"failed_count":    result.FailedCount,
		"results":         result.Results,
	})
}

func parseListOptions(r *http.Request) (memory.ListOptions, error) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		return memory.ListOptions{}, err
	}
	limit, err := intParam(r, "limit", 20)
	if err != nil {
		return memory.ListOptions{}, err
	}

	memType, tags, minAlignment, err := parseFilters(r)
	if err != nil {
		return memory.ListOptions{}, err
	}

	return memory.ListOptions{
		Page:         page,
		Limit:        limit,
		Type:         memType,
		Tags:         tags,
		MinAlignment: minAlignment,
	}, nil
}

func parseFilters(r *http.Request) (*model.MemoryType, []string, *float64, error) {
	var memType *model.MemoryType
	if v := r.URL.Query().Get("memory_type"); v != "" {
		t := model.MemoryType(v)
		if err := t.Validate(); err != nil {
			return nil, nil, nil, err
		}
		memType = &t
	}

	var tags []string
	if v := r.URL.Query().Get("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	minAlignment, err := floatParam(r, "min_alignment")
	if err != nil {
		return nil, nil, nil, err
	}

	return memType, tags, minAlignment, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func floatParam(r *http.Request, name string) (*float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
