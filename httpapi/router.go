package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/optizone/rose/fsmanager"
)

// imageExt is the extension the two /images routes always use; only the
// preload route carries an explicit, per-item extension.
const imageExt = "jpeg"

// Server wires an FsManager to an HTTP surface.
type Server struct {
	manager      *fsmanager.FsManager
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures the Server built by NewRouter.
type Option func(*Server)

// WithLogger sets the logger used for request diagnostics. A nil logger
// (the default) discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMaxBodyBytes bounds the size of a POST /images/{uuid} body via
// http.MaxBytesReader. Zero (the default) leaves the body unbounded; this
// is a transport-level safety guard, not a content quota.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

func (s *Server) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// NewRouter builds the four-route HTTP surface in front of manager.
func NewRouter(manager *fsmanager.FsManager, opts ...Option) *mux.Router {
	s := &Server{manager: manager}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/images/{uuid}", s.handleGetImage).Methods(http.MethodGet)
	r.HandleFunc("/images/{uuid}", s.handlePostImage).Methods(http.MethodPost)
	r.HandleFunc("/api/force_load_cache", s.handleForceLoadCache).Methods(http.MethodPost)
	return r
}
