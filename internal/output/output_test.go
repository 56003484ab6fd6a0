package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxvaer/reconx/internal/scanner"
)

type entry struct {
	URL    string  `json:"url"`
	Status int     `json:"status"`
	Server *string `json:"server"`
}

func TestReportSinkWriteRead(t *testing.T) {
	sink := NewReportSink(filepath.Join(t.TempDir(), "nested", "reports"))
	in := []entry{{URL: "https://example.com/", Status: 200}}

	path, err := sink.Write("example.com", "fingerprint", in)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sink.Dir, "example.com_fingerprint.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n")
	assert.Contains(t, string(data), `"server": null`)

	var out []entry
	require.NoError(t, sink.Read("example.com", "fingerprint", &out))
	assert.Equal(t, in, out)

	leftovers, err := filepath.Glob(filepath.Join(sink.Dir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestReportSinkOverwrite(t *testing.T) {
	sink := NewReportSink(t.TempDir())
	_, err := sink.Write("example.com", "subdomains", []string{"a.example.com", "b.example.com"})
	require.NoError(t, err)
	_, err = sink.Write("example.com", "subdomains", []string{"c.example.com"})
	require.NoError(t, err)

	var names []string
	require.NoError(t, sink.Read("example.com", "subdomains", &names))
	assert.Equal(t, []string{"c.example.com"}, names)
}

func TestReportSinkPortInDomain(t *testing.T) {
	sink := NewReportSink(t.TempDir())
	assert.Equal(t, filepath.Join(sink.Dir, "127.0.0.1_8080_dirbrute.json"), sink.Path("127.0.0.1:8080", "dirbrute"))
}

func TestReportSinkErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	sink := NewReportSink(filepath.Join(blocker, "reports"))
	_, err := sink.Write("example.com", "http_probe", []string{})
	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "write", perr.Op)

	err = NewReportSink(dir).Read("missing.com", "http_probe", &[]string{})
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewReportSink(dir).Write("example.com", "bad", func() {})
	assert.Error(t, err, "unencodable value")
}

func TestNewReportSinkDefault(t *testing.T) {
	assert.Equal(t, DefaultReportsDir, NewReportSink("").Dir)
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, true, false)

	ok := scanner.NewResponseOutcome(scanner.ProbeUnit{URL: "https://example.com/admin"}, 301, 0,
		&scanner.Payload{FinalURL: "https://example.com/admin/", ContentLength: 12})
	require.NoError(t, w.WriteHeader("dirbrute", 10))
	require.NoError(t, w.WriteResult(&ok))
	require.NoError(t, w.WriteLine("api.example.com"))

	rs := scanner.ResultSet{Outcomes: []scanner.Outcome{ok}, Total: 10, Partial: true, Elapsed: time.Second}
	require.NoError(t, w.WriteFooter(NewStats("dirbrute", rs, 1), "reports/example.com_dirbrute.json"))

	out := buf.String()
	assert.Contains(t, out, "[*] dirbrute: 10 probes")
	assert.Contains(t, out, "301        12  https://example.com/admin -> https://example.com/admin/")
	assert.Contains(t, out, "+  api.example.com")
	assert.Contains(t, out, "Completed: 1/10 requests | Kept: 1 | Errors: 0")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "Report saved to reports/example.com_dirbrute.json")
	assert.NotContains(t, out, "\x1b[")
}

func TestTextWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf, true, true)
	require.NoError(t, w.WriteHeader("http_probe", 6))
	require.NoError(t, w.WriteFooter(Stats{}, ""))
	assert.Empty(t, buf.String())
}

func TestProgressNilSafe(t *testing.T) {
	var p *Progress
	p.Increment()
	p.Finish()
	assert.Nil(t, NewProgress(&bytes.Buffer{}, 0, "empty"))

	var buf bytes.Buffer
	bar := NewProgress(&buf, 2, "probing")
	require.NotNil(t, bar)
	bar.Increment()
	bar.Increment()
	bar.Finish()
}

func TestNewStats(t *testing.T) {
	u := scanner.ProbeUnit{URL: "http://example.com/"}
	rs := scanner.ResultSet{
		Outcomes: []scanner.Outcome{
			scanner.NewResponseOutcome(u, 200, 0, nil),
			scanner.NewFailureOutcome(scanner.ProbeUnit{URL: "https://example.com/"}, scanner.ErrorTLSFailed, errors.New("x"), 0),
		},
		Total:   2,
		Elapsed: 2 * time.Second,
	}
	s := NewStats("http_probe", rs, 1)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Equal(t, 1, s.KeptCount)
	assert.InDelta(t, 1.0, s.RequestsPerSec, 0.001)
}
