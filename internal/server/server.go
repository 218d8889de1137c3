package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/dashboard"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/filter"
	"github.com/KaramelBytes/lfbdash-cli/internal/render"
	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "lfbdash_session"

// Config contains configuration options for the web server.
type Config struct {
	Address  string
	Loader   *dataset.Loader
	Settings dashboard.Settings
	// DataDir and Patterns drive file discovery.
	DataDir  string
	Patterns []string
	// Initial are tried when a new session starts, e.g. a --path flag.
	Initial []dataset.Source
	// MaxUploadBytes caps multipart uploads; 0 means 256 MiB.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server exposes dashboard sessions over HTTP. Each browser gets its own
// session; all sessions share one loader.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	server   *http.Server
	mu       sync.Mutex
	sessions map[string]*dashboard.Session
}

// New creates a server with the provided configuration.
func New(cfg Config) *Server {
	if cfg.Loader == nil {
		cfg.Loader = dataset.NewLoader(cfg.Logger)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 256 << 20
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger.With("component", "server"),
		sessions: map[string]*dashboard.Session{},
	}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleReport)
	mux.HandleFunc("/api/sources", s.handleSources)
	mux.HandleFunc("/api/source", s.handleSource)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/filters/reset", s.handleReset)
	mux.HandleFunc("/api/map", s.handleMap)
	mux.HandleFunc("/export.csv", s.handleExport)
	mux.HandleFunc("/charts/", s.handleChart)
	mux.HandleFunc("/map.png", s.handleMapPNG)
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.cfg.Address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown error", "err", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("force close: %w", err)
		}
	}
	return nil
}

// Close shuts down the web server.
func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps pipeline errors onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	var (
		nd *dataset.NoDataError
		le *dataset.LoadError
		mc *analysis.MissingColumnError
	)
	switch {
	case errors.As(err, &nd):
		if len(nd.Failures) > 0 {
			msgs := make([]string, len(nd.Failures))
			for i, f := range nd.Failures {
				msgs[i] = f.Error()
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": dataset.NoDataPrompt, "failures": msgs})
			return
		}
		writeJSONError(w, http.StatusConflict, dataset.NoDataPrompt)
	case errors.As(err, &le):
		writeJSONError(w, http.StatusUnprocessableEntity, le.Error())
	case errors.As(err, &mc):
		writeJSONError(w, http.StatusNotFound, mc.Error())
	case errors.Is(err, render.ErrNoData):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// session returns the caller's session, creating one (and setting the
// cookie) when needed. Callers hold s.mu.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *dashboard.Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			return sess
		}
	}
	id := uuid.NewString()
	sess := dashboard.NewSession(id, s.cfg.Settings)
	s.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})

	sources := append([]dataset.Source(nil), s.cfg.Initial...)
	if found, err := dataset.Discover(s.cfg.DataDir, s.cfg.Patterns); err == nil && len(found) > 0 {
		sources = append(sources, dataset.DiscoveredSource(found[0]))
	}
	if len(sources) > 0 {
		if err := sess.Open(s.cfg.Loader, sources...); err != nil {
			s.logger.Warn("initial load failed", "session", id, "err", err)
		}
	}
	s.logger.Info("new session", "session", id, "loaded", sess.Loaded())
	return sess
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	st := s.cfg.Loader.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "lfbdash",
		"sessions":  n,
		"cache":     map[string]int{"entries": st.Entries, "hits": st.Hits, "misses": st.Misses},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.session(w, r).Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	md := v.Markdown()
	if n, err := strconv.Atoi(r.URL.Query().Get("preview")); err == nil && n > 0 {
		md += "\n" + v.Preview(n)
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, md)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	found, err := dataset.Discover(s.cfg.DataDir, s.cfg.Patterns)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	resp := map[string]any{"discovered": found, "extensions": dataset.Extensions()}
	if sess.Loaded() {
		resp["current"] = sess.Source().Label()
	}
	writeJSON(w, http.StatusOK, resp)
}

type sourceRequest struct {
	Path       string `json:"path"`
	Discovered string `json:"discovered"`
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	var sources []dataset.Source
	if strings.TrimSpace(req.Path) != "" {
		sources = append(sources, dataset.PathSource(req.Path))
	}
	if req.Discovered != "" {
		found, err := dataset.Discover(s.cfg.DataDir, s.cfg.Patterns)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		match := ""
		for _, f := range found {
			if f == req.Discovered || filepath.Base(f) == req.Discovered {
				match = f
				break
			}
		}
		if match == "" {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no detected file named %q", req.Discovered))
			return
		}
		sources = append(sources, dataset.DiscoveredSource(match))
	}
	if len(sources) == 0 {
		writeJSONError(w, http.StatusBadRequest, "provide 'path' or 'discovered'")
		return
	}
	s.openAndRespond(w, r, sources...)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("missing 'file' form field: %v", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}
	s.openAndRespond(w, r, dataset.UploadSource(hdr.Filename, data))
}

func (s *Server) openAndRespond(w http.ResponseWriter, r *http.Request, sources ...dataset.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	if err := sess.Open(s.cfg.Loader, sources...); err != nil {
		writeErr(w, err)
		return
	}
	s.respondView(w, sess)
}

func (s *Server) respondView(w http.ResponseWriter, sess *dashboard.Session) {
	v, err := sess.Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondView(w, s.session(w, r))
}

// filtersRequest replaces only the facets present in the body. Facet and
// Values set one facet from text, as a form would send it.
type filtersRequest struct {
	Years    *[]float64 `json:"years"`
	Types    *[]string  `json:"types"`
	Boroughs *[]string  `json:"boroughs"`
	Facet    string     `json:"facet"`
	Values   []string   `json:"values"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req filtersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	var facet filter.Facet
	if req.Facet != "" {
		f, err := filter.ParseFacet(req.Facet)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		facet = f
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	st := sess.State()
	if st == nil {
		writeErr(w, &dataset.NoDataError{})
		return
	}
	rejected := map[string]any{}
	if req.Years != nil {
		if rej := st.SetYears(*req.Years); len(rej) > 0 {
			rejected[string(filter.FacetYear)] = rej
		}
	}
	if req.Types != nil {
		if rej := st.SetTypes(*req.Types); len(rej) > 0 {
			rejected[string(filter.FacetType)] = rej
		}
	}
	if req.Boroughs != nil {
		if rej := st.SetBoroughs(*req.Boroughs); len(rej) > 0 {
			rejected[string(filter.FacetBorough)] = rej
		}
	}
	if facet != "" {
		rej, err := st.Set(facet, req.Values)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(rej) > 0 {
			rejected[string(facet)] = rej
		}
	}
	v, err := sess.Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": v, "rejected": rejected})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	if sess.State() == nil {
		writeErr(w, &dataset.NoDataError{})
		return
	}
	sess.State().Reset()
	s.respondView(w, sess)
}

type mapRequest struct {
	EnforceBBox *bool `json:"enforce_bbox"`
	SampleSize  *int  `json:"sample_size"`
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(w, r)
	if req.EnforceBBox != nil {
		sess.Map.EnforceBBox = *req.EnforceBBox
	}
	if req.SampleSize != nil {
		sess.Map.SampleSize = *req.SampleSize
	}
	s.respondView(w, sess)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.session(w, r).Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	name := s.cfg.Settings.ExportFile
	if name == "" {
		name = "lfb_filtered.csv"
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	if err := dataset.WriteCSV(w, v.Filtered); err != nil {
		s.logger.Warn("export failed", "err", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/charts/"), ".png")
	def, err := analysis.LookupView(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.session(w, r).Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	rows, err := v.Section(def.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	var png []byte
	if def.Name == analysis.ViewMonthly {
		m := render.MetricIncidents
		if r.URL.Query().Get("metric") == "median" {
			m = render.MetricMedian
		}
		png, err = render.TrendChart(rows, m)
	} else {
		png, err = render.BarChart(def.Title, rows)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writePNG(w, png)
}

func (s *Server) handleMapPNG(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.session(w, r).Recompute()
	if err != nil {
		writeErr(w, err)
		return
	}
	if v.Map == nil {
		writeJSONError(w, http.StatusNotFound, v.MapError)
		return
	}
	var bbox = &v.Map.BBox
	if !v.Map.EnforceBBox {
		bbox = nil
	}
	png, err := render.MapPlot(v.Map.Sample, bbox)
	if err != nil {
		writeErr(w, err)
		return
	}
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}
