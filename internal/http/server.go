// Package http exposes mirror resolution over HTTP together with health and
// Prometheus endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"go.uber.org/zap"

	"lavasrc/internal/core"
	"lavasrc/internal/flood"
	"lavasrc/internal/mirror"
	"lavasrc/pkg/text"
)

const shutdownTimeout = 10 * time.Second

var (
	// ErrUnsupportedLink is returned when no link resolver accepts a link.
	ErrUnsupportedLink = errors.New("unsupported url")
	// ErrPreviewUnsupported is returned when a preview is requested for a
	// catalog without preview clips.
	ErrPreviewUnsupported = errors.New("previews are not supported for this url")
)

// MirrorResolver resolves source tracks to their mirrors. Load plays a
// preview URL without mirroring.
type MirrorResolver interface {
	ResolveDetailed(ctx context.Context, track core.SourceTrack) (mirror.Resolution, error)
	Load(ctx context.Context, query string) (lavalink.Track, error)
}

// LinkResolver turns a catalog link into a source track.
type LinkResolver interface {
	CanResolve(url string) bool
	Resolve(ctx context.Context, url string) (core.SourceTrack, error)
}

// PreviewResolver is implemented by link resolvers whose catalog has preview
// clips.
type PreviewResolver interface {
	ResolvePreview(ctx context.Context, url string) (core.SourceTrack, error)
}

// ResolveLink resolves link with the first resolver that accepts it. With
// preview set the resolver must implement PreviewResolver.
func ResolveLink(ctx context.Context, links []LinkResolver, link string, preview bool) (core.SourceTrack, error) {
	for _, resolver := range links {
		if !resolver.CanResolve(link) {
			continue
		}
		if !preview {
			return resolver.Resolve(ctx, link)
		}
		previews, ok := resolver.(PreviewResolver)
		if !ok {
			return core.SourceTrack{}, ErrPreviewUnsupported
		}
		return previews.ResolvePreview(ctx, link)
	}
	return core.SourceTrack{}, ErrUnsupportedLink
}

// Dependencies are the collaborators of the API handlers. Floodgate and Ready
// are optional.
type Dependencies struct {
	Resolver  MirrorResolver
	Links     []LinkResolver
	Floodgate *flood.Floodgate
	Ready     func() bool
}

type Server struct {
	config *core.ServerConfig
	logger *zap.Logger
	server *http.Server
}

func NewServer(config *core.ServerConfig, metrics *Metrics, deps Dependencies, logger *zap.Logger) *Server {
	logger = logger.Named("http")
	mux := setupRoutes(logger, metrics, deps)

	return &Server{
		config: config,
		logger: logger,
		server: createHTTPServer(config, mux),
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(logger *zap.Logger, metrics *Metrics, deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, statusResponse{Status: "ok", Service: "lavasrc"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if deps.Ready != nil && !deps.Ready() {
			writeJSON(w, logger, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Service: "lavasrc"})
			return
		}
		writeJSON(w, logger, http.StatusOK, statusResponse{Status: "ready", Service: "lavasrc"})
	})

	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /v1/mirror", &mirrorHandler{deps: deps, metrics: metrics, logger: logger})
	mux.HandleFunc("GET /{$}", homeHandler(logger))

	return mux
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>LavaSrc Mirror</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">LavaSrc Mirror</h1>
    <p>Finds streamable mirrors of Spotify, Apple Music, Tidal, Beatport and Amazon Music tracks.</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/v1/mirror?title=Never+Gonna+Give+You+Up&amp;author=Rick+Astley">/v1/mirror</a> - Resolve a mirror by <code>url</code> or <code>title</code>, <code>author</code>, <code>duration_ms</code>, <code>isrc</code></div>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type errorResponse struct {
	Error    string           `json:"error"`
	Attempts []mirror.Attempt `json:"attempts,omitempty"`
}

type sourceView struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	DurationMS int64  `json:"duration_ms"`
	ISRC       string `json:"isrc,omitempty"`
	SourceName string `json:"source,omitempty"`
	URI        string `json:"uri,omitempty"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	Preview    bool   `json:"preview,omitempty"`
}

type mirrorResponse struct {
	Source   sourceView       `json:"source"`
	Track    lavalink.Track   `json:"track"`
	Provider string           `json:"provider,omitempty"`
	Cached   bool             `json:"cached"`
	Attempts []mirror.Attempt `json:"attempts"`
}

// badRequestError marks input errors reported with status 400.
type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string {
	return e.msg
}

type mirrorHandler struct {
	deps    Dependencies
	metrics *Metrics
	logger  *zap.Logger
}

func (h *mirrorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.serve(w, r)
	h.metrics.RequestsTotal.WithLabelValues("mirror", strconv.Itoa(status)).Inc()
}

func (h *mirrorHandler) serve(w http.ResponseWriter, r *http.Request) int {
	if h.deps.Floodgate != nil {
		if ok, retryAfter := h.deps.Floodgate.Allow(clientKey(r)); !ok {
			h.metrics.ThrottledTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			return writeJSON(w, h.logger, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		}
	}

	track, err := h.sourceTrack(r)
	if err != nil {
		var badRequest badRequestError
		if errors.As(err, &badRequest) || errors.Is(err, ErrUnsupportedLink) || errors.Is(err, ErrPreviewUnsupported) {
			return writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		h.logger.Warn("Failed to resolve catalog link", zap.Error(err))
		return writeJSON(w, h.logger, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}

	if track.IsPreview {
		return h.servePreview(w, r, track)
	}

	res, err := h.deps.Resolver.ResolveDetailed(r.Context(), track)
	switch {
	case errors.Is(err, mirror.ErrTrackNotFound):
		return writeJSON(w, h.logger, http.StatusNotFound, errorResponse{Error: err.Error(), Attempts: res.Attempts})
	case err != nil:
		h.logger.Warn("Mirror resolution aborted", zap.String("title", track.Title), zap.Error(err))
		return writeJSON(w, h.logger, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Attempts: res.Attempts})
	}

	attempts := res.Attempts
	if attempts == nil {
		attempts = []mirror.Attempt{}
	}
	return writeJSON(w, h.logger, http.StatusOK, mirrorResponse{
		Source:   newSourceView(track),
		Track:    res.Track,
		Provider: res.Provider,
		Cached:   res.Cached,
		Attempts: attempts,
	})
}

// servePreview loads the preview clip of track directly.
func (h *mirrorHandler) servePreview(w http.ResponseWriter, r *http.Request, track core.SourceTrack) int {
	if track.PreviewURL == "" {
		return writeJSON(w, h.logger, http.StatusNotFound, errorResponse{Error: mirror.ErrNoPreviewURL.Error()})
	}

	preview, err := h.deps.Resolver.Load(r.Context(), track.PreviewURL)
	switch {
	case errors.Is(err, mirror.ErrTrackNotFound):
		return writeJSON(w, h.logger, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		h.logger.Warn("Preview load failed", zap.String("title", track.Title), zap.Error(err))
		return writeJSON(w, h.logger, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	}

	return writeJSON(w, h.logger, http.StatusOK, mirrorResponse{
		Source:   newSourceView(track),
		Track:    preview,
		Provider: track.PreviewURL,
		Attempts: []mirror.Attempt{},
	})
}

func newSourceView(track core.SourceTrack) sourceView {
	return sourceView{
		Title:      track.Title,
		Author:     track.Author,
		DurationMS: track.Duration.Milliseconds(),
		ISRC:       track.ISRC,
		SourceName: track.SourceName,
		URI:        track.URI,
		ArtworkURL: track.ArtworkURL,
		Preview:    track.IsPreview,
	}
}

// sourceTrack builds the descriptor from either a catalog link or explicit
// metadata parameters.
func (h *mirrorHandler) sourceTrack(r *http.Request) (core.SourceTrack, error) {
	query := r.URL.Query()

	preview := false
	if raw := query.Get("preview"); raw != "" {
		var err error
		if preview, err = strconv.ParseBool(raw); err != nil {
			return core.SourceTrack{}, badRequestError{msg: fmt.Sprintf("invalid preview %q", raw)}
		}
	}

	if link := strings.TrimSpace(query.Get("url")); link != "" {
		if cleaned := text.CleanURL(link); cleaned != "" {
			link = cleaned
		}
		return ResolveLink(r.Context(), h.deps.Links, link, preview)
	}
	if preview {
		return core.SourceTrack{}, badRequestError{msg: "preview requires url"}
	}

	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		return core.SourceTrack{}, badRequestError{msg: "either url or title is required"}
	}

	author := strings.TrimSpace(query.Get("author"))
	if author == "" {
		author = core.UnknownAuthor
	}

	var duration time.Duration
	if raw := query.Get("duration_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			return core.SourceTrack{}, badRequestError{msg: fmt.Sprintf("invalid duration_ms %q", raw)}
		}
		duration = time.Duration(ms) * time.Millisecond
	}

	return core.SourceTrack{
		Title:      title,
		Author:     author,
		Duration:   duration,
		ISRC:       strings.TrimSpace(query.Get("isrc")),
		SourceName: query.Get("source"),
		URI:        query.Get("uri"),
	}, nil
}

// clientKey identifies the caller for flood control.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
	return status
}
