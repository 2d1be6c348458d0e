package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marvin-labs/memoria/pkg/cache"
	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/usecase/memory"
	"github.com/marvin-labs/memoria/pkg/usecase/tweet"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// MemoryUseCase is the memory operation surface the server exposes.
type MemoryUseCase interface {
	Create(ctx context.Context, input memory.CreateInput) (*memory.CreateOutput, error)
	List(ctx context.Context, opts memory.ListOptions) (*memory.ListOutput, error)
	Search(ctx context.Context, opts memory.SearchOptions) ([]*model.ScoredMemory, error)
	Delete(ctx context.Context, id model.MemoryID) error
}

// TweetUseCase triggers batch tweet processing.
type TweetUseCase interface {
	Process(ctx context.Context, opts tweet.ProcessOptions) (*tweet.ProcessResult, error)
}

// Server is the HTTP surface over the memory and tweet usecases.
type Server struct {
	memories  MemoryUseCase
	tweets    TweetUseCase
	listCache *cache.Cache[string, *memory.ListOutput]
	logger    *slog.Logger
}

type Option func(*Server)

// WithListCacheTTL overrides how long list responses are served from cache.
func WithListCacheTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.listCache = cache.New[string, *memory.ListOutput](256, ttl)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(memories MemoryUseCase, tweets TweetUseCase, opts ...Option) *Server {
	s := &Server{
		memories:  memories,
		tweets:    tweets,
		listCache: cache.New[string, *memory.ListOutput](256, 30*time.Second),
		logger:    logging.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/memories", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/search", s.handleSearch)
		r.Post("/", s.handleCreate)
		r.Delete("/{id}", s.handleDelete)
	})

	r.Post("/tweets/process", s.handleProcessTweets)

	return r
}

// requestLogger injects the server logger into the request context and logs
// each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		ctx := logging.With(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}
