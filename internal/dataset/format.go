package dataset

import (
	"path/filepath"
	"strings"
)

// Format decodes one on-disk encoding into a Table.
type Format interface {
	Name() string
	CanDecode(filename string) bool
	Decode(name string, data []byte) (*Table, error)
}

var registry []Format

// Register adds a format implementation to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// FormatFor selects a format by filename extension; nil when unsupported.
func FormatFor(filename string) Format {
	for _, f := range registry {
		if f.CanDecode(filename) {
			return f
		}
	}
	return nil
}

// Extensions lists the file extensions accepted by the registered formats.
func Extensions() []string {
	var out []string
	for _, f := range registry {
		switch f.(type) {
		case csvFormat:
			out = append(out, ".csv", ".tsv")
		case parquetFormat:
			out = append(out, ".parquet")
		}
	}
	return out
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func init() {
	Register(parquetFormat{})
	Register(csvFormat{})
}
