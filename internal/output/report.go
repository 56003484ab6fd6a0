package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultReportsDir is where reports land when no directory is configured.
const DefaultReportsDir = "reports"

// PersistError is returned when a report cannot be written or read. It does
// not invalidate the in-memory results.
type PersistError struct {
	Op   string // write or read
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s report %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// ReportSink persists module results as <Dir>/<domain>_<module>.json.
type ReportSink struct {
	Dir string
}

// NewReportSink creates a sink rooted at dir.
func NewReportSink(dir string) *ReportSink {
	if dir == "" {
		dir = DefaultReportsDir
	}
	return &ReportSink{Dir: dir}
}

// Path returns the report location for a domain and module. A port suffix on
// the domain is kept with ':' replaced so the name is portable.
func (s *ReportSink) Path(domain, module string) string {
	name := strings.ReplaceAll(domain, ":", "_") + "_" + module + ".json"
	return filepath.Join(s.Dir, name)
}

// Write encodes v as indented JSON and atomically replaces the report file.
func (s *ReportSink) Write(domain, module string, v any) (string, error) {
	path := s.Path(domain, module)
	fail := func(err error) (string, error) {
		return "", &PersistError{Op: "write", Path: path, Err: err}
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fail(err)
	}
	tmp, err := os.CreateTemp(s.Dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fail(err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(err)
	}
	return path, nil
}

// Read decodes a previously written report into v.
func (s *ReportSink) Read(domain, module string, v any) error {
	path := s.Path(domain, module)
	data, err := os.ReadFile(path)
	if err != nil {
		return &PersistError{Op: "read", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &PersistError{Op: "read", Path: path, Err: err}
	}
	return nil
}
