package dashboard

import (
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/filter"
)

// Session is one user's dashboard context: the loaded table, its source,
// the filter selections and the map controls. It is not safe for concurrent
// use; callers serialise access.
type Session struct {
	ID       string
	Settings Settings
	Map      MapOptions

	table    *dataset.Table
	source   dataset.Source
	state    *filter.State
	failures []*dataset.LoadError
}

// NewSession creates an empty session.
func NewSession(id string, s Settings) *Session {
	return &Session{ID: id, Settings: s, Map: MapOptions{EnforceBBox: s.EnforceBBox}}
}

// Open resolves sources through the loader. Filter defaults are recomputed
// only when a different table is loaded. When nothing loads the session
// keeps its previous table and the *dataset.NoDataError is returned.
func (s *Session) Open(l *dataset.Loader, sources ...dataset.Source) error {
	t, src, failures, err := l.Resolve(sources...)
	s.failures = failures
	if err != nil {
		return err
	}
	if t != s.table {
		s.state = filter.NewState(t, s.Settings.RecentYears)
	}
	s.table = t
	s.source = src
	return nil
}

// Loaded reports whether a table is available.
func (s *Session) Loaded() bool { return s.table != nil }

// Table returns the loaded, unfiltered table.
func (s *Session) Table() *dataset.Table { return s.table }

// Source returns where the table came from.
func (s *Session) Source() dataset.Source { return s.source }

// State returns the filter state, nil before a table is loaded.
func (s *Session) State() *filter.State { return s.state }

// Failures returns the load errors of the last Open.
func (s *Session) Failures() []*dataset.LoadError { return s.failures }

// Recompute runs one pipeline pass.
func (s *Session) Recompute() (*View, error) {
	if s.table == nil {
		return nil, &dataset.NoDataError{Failures: s.failures}
	}
	v := Build(s.table, s.state, s.Map, s.Settings)
	v.Source = s.source.Label()
	for _, f := range s.failures {
		v.Notes = append(v.Notes, "skipped "+f.Error())
	}
	return v, nil
}
