// Package metrics counts linter activity and exports it in the Prometheus
// textfile format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "spellcheck"

// Metrics owns a private registry so several runs in one process never
// collide on the default registerer.
type Metrics struct {
	Registry *prometheus.Registry

	FilesScanned  prometheus.Counter
	ScanErrors    prometheus.Counter
	TokensChecked prometheus.Counter
	Findings      prometheus.Counter
	OracleErrors  prometheus.Counter
	Decisions     *prometheus.CounterVec
}

// New creates and registers every counter.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_scanned_total",
			Help: "Files read and scanned for words.",
		}),
		ScanErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scan_errors_total",
			Help: "Files skipped because they could not be read or decoded.",
		}),
		TokensChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tokens_checked_total",
			Help: "Sub-word tokens looked up.",
		}),
		Findings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "findings_total",
			Help: "Distinct unknown words per file.",
		}),
		OracleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "oracle_errors_total",
			Help: "Lookups that failed and produced no suggestions.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decisions_total",
			Help: "Interactive decisions by action.",
		}, []string{"action"}),
	}
	m.Registry.MustRegister(m.FilesScanned, m.ScanErrors, m.TokensChecked, m.Findings, m.OracleErrors, m.Decisions)
	return m
}

func (m *Metrics) FileScanned() {
	if m != nil {
		m.FilesScanned.Inc()
	}
}

func (m *Metrics) ScanError() {
	if m != nil {
		m.ScanErrors.Inc()
	}
}

func (m *Metrics) TokenChecked() {
	if m != nil {
		m.TokensChecked.Inc()
	}
}

func (m *Metrics) Finding() {
	if m != nil {
		m.Findings.Inc()
	}
}

func (m *Metrics) OracleError() {
	if m != nil {
		m.OracleErrors.Inc()
	}
}

// Decision counts one resolved finding under its action name.
func (m *Metrics) Decision(action string) {
	if m != nil {
		m.Decisions.WithLabelValues(action).Inc()
	}
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
