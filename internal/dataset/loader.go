package dataset

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// SourceKind orders sources by precedence: lower kinds are tried first.
type SourceKind int

const (
	SourcePath SourceKind = iota
	SourceDiscovered
	SourceUpload
)

func (k SourceKind) String() string {
	switch k {
	case SourcePath:
		return "typed path"
	case SourceDiscovered:
		return "detected file"
	case SourceUpload:
		return "uploaded"
	default:
		return "unknown"
	}
}

// Source identifies where a table comes from.
type Source struct {
	Kind SourceKind
	// Path is set for filesystem sources.
	Path string
	// Name and Data are set for uploads.
	Name string
	Data []byte
}

// PathSource is an explicit filesystem path typed by the user.
func PathSource(path string) Source {
	return Source{Kind: SourcePath, Path: strings.TrimSpace(path)}
}

// DiscoveredSource is a path picked from Discover results.
func DiscoveredSource(path string) Source {
	return Source{Kind: SourceDiscovered, Path: path}
}

// UploadSource is raw file content with its original filename.
func UploadSource(name string, data []byte) Source {
	return Source{Kind: SourceUpload, Name: name, Data: data}
}

// IsZero reports whether the source carries nothing to load.
func (s Source) IsZero() bool {
	if s.Kind == SourceUpload {
		return s.Name == "" && len(s.Data) == 0
	}
	return s.Path == ""
}

// Filename is the name used for format dispatch.
func (s Source) Filename() string {
	if s.Kind == SourceUpload {
		return s.Name
	}
	return s.Path
}

// Label describes the source for status messages, e.g. "detected file: x.csv".
func (s Source) Label() string {
	return fmt.Sprintf("%s: %s", s.Kind, s.Filename())
}

// CacheStats reports loader memoization counters.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// Loader reads sources into tables and memoizes results by source identity.
// The cache is unbounded; the number of datasets per process is small.
type Loader struct {
	mu     sync.Mutex
	cache  map[string]*Table
	hits   int
	misses int
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{cache: map[string]*Table{}, logger: logger.With("component", "loader")}
}

// Load returns the table for src, reading it only on the first request for
// a given identity. Path identity is absolute path + mtime + size; upload
// identity is the SHA-1 of the content + extension.
func (l *Loader) Load(src Source) (*Table, error) {
	if src.IsZero() {
		return nil, &LoadError{Source: src, Err: fmt.Errorf("empty source")}
	}
	format := FormatFor(src.Filename())
	if format == nil {
		return nil, &LoadError{Source: src, Err: fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFormat, filepath.Ext(src.Filename()), strings.Join(Extensions(), ", "))}
	}

	key, err := cacheKey(src)
	if err != nil {
		return nil, &LoadError{Source: src, Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.cache[key]; ok {
		l.hits++
		l.logger.Debug("cache hit", "source", src.Label())
		return t, nil
	}

	data := src.Data
	if src.Kind != SourceUpload {
		data, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, &LoadError{Source: src, Err: fmt.Errorf("read file: %w", err)}
		}
	}
	t, err := format.Decode(filepath.Base(src.Filename()), data)
	if err != nil {
		return nil, &LoadError{Source: src, Err: fmt.Errorf("decode %s: %w", format.Name(), err)}
	}
	t = CoerceSemantic(t)
	l.misses++
	l.cache[key] = t
	l.logger.Info("loaded dataset", "source", src.Label(), "rows", t.NumRows(), "cols", t.NumCols())
	for _, c := range t.Coercions {
		l.logger.Warn("coercion", "column", c.Column, "invalid", c.Invalid)
	}
	return t, nil
}

// Resolve tries sources in precedence order (typed path, detected file,
// upload) and returns the first table that loads. Failures of the sources
// tried before it are returned alongside. When nothing loads the error is
// a *NoDataError.
func (l *Loader) Resolve(sources ...Source) (*Table, Source, []*LoadError, error) {
	ordered := make([]Source, 0, len(sources))
	for _, s := range sources {
		if !s.IsZero() {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Kind < ordered[j].Kind })

	var failures []*LoadError
	for _, s := range ordered {
		t, err := l.Load(s)
		if err == nil {
			return t, s, failures, nil
		}
		var le *LoadError
		if !errors.As(err, &le) {
			le = &LoadError{Source: s, Err: err}
		}
		l.logger.Warn("source failed", "source", s.Label(), "err", le.Err)
		failures = append(failures, le)
	}
	return nil, Source{}, failures, &NoDataError{Failures: failures}
}

// Stats returns memoization counters.
func (l *Loader) Stats() CacheStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CacheStats{Entries: len(l.cache), Hits: l.hits, Misses: l.misses}
}

func cacheKey(src Source) (string, error) {
	if src.Kind == SourceUpload {
		sum := sha1.Sum(src.Data)
		return "upload:" + hex.EncodeToString(sum[:]) + ":" + strings.ToLower(filepath.Ext(src.Name)), nil
	}
	abs, err := filepath.Abs(src.Path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", src.Path)
	}
	return fmt.Sprintf("path:%s:%d:%d", abs, info.ModTime().UnixNano(), info.Size()), nil
}

// DefaultPatterns are the filename patterns searched by Discover.
var DefaultPatterns = []string{"lfb_fact_incident_kpi*.parquet", "lfb_fact_incident_kpi*.csv"}

// Discover lists files in dir matching any of the patterns, sorted.
func Discover(dir string, patterns []string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	seen := map[string]struct{}{}
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
