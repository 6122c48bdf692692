package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.FileScanned()
	m.FileScanned()
	m.ScanError()
	m.TokenChecked()
	m.Finding()
	m.OracleError()
	m.Decision("skip")
	m.Decision("skip")
	m.Decision("add-project")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesScanned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokensChecked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Findings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OracleErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("skip")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("add-project")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.FileScanned()
	m.Decision("skip")
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Finding()
	p := filepath.Join(t.TempDir(), "spellcheck.prom")
	require.NoError(t, m.WriteTextfile(p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "spellcheck_findings_total 1")
	assert.Contains(t, string(b), "# TYPE spellcheck_files_scanned_total counter")
}
