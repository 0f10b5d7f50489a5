// Package telemetry provides logging and Prometheus metrics for warehub.
//
// # Textfile Export
//
// warehub runs as a short-lived CLI (usually inside a CI job), so nothing is
// around long enough to be scraped. Instead, when telemetry.metrics.textfile is
// set, the default registry is written once at the end of a run in the
// Prometheus text exposition format, ready for the node-exporter textfile
// collector:
//
//	telemetry.WriteTextfile(cfg.Telemetry.Metrics.Textfile)
//
// # Metric Groups
//
//   - Ingested artifacts by result and package type, plus accepted bytes
//   - GitHub release lookups and asset downloads by status
//   - Generated pages by view and total generation time
//   - Record counts per store table after the last save
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest metrics, recorded by the ingest pipeline for every artifact offered.
//
// IngestArtifactsTotal is a CounterVec with labels {result, packagetype}. result
// is "stored" or the name of the failed step (inspect, validate, file_size,
// exists, project_size, copy, ...). packagetype is the distribution format, or
// "unknown" when the artifact could not be recognised.
//
// Example PromQL queries:
//   - Rejection ratio:  sum(warehub_ingest_artifacts_total{result!="stored"}) / sum(warehub_ingest_artifacts_total)
//
// IngestBytesTotal counts the bytes of every stored artifact.
var (
	IngestArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehub_ingest_artifacts_total",
			Help: "Total number of artifacts offered for ingestion, by result and package type.",
		},
		[]string{"result", "packagetype"},
	)

	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warehub_ingest_bytes_total",
			Help: "Total size in bytes of artifacts stored.",
		},
	)
)

// Mirror metrics, recorded by the GitHub releases client.
//
// MirrorRequestsTotal is a CounterVec with labels {kind, status}; kind is
// "release" for the release lookup and "asset" for a download, status is the
// HTTP status code or "error" when no response was received.
//
// MirrorDownloadBytesTotal counts downloaded asset bytes.
var (
	MirrorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehub_mirror_requests_total",
			Help: "Total number of GitHub API and asset requests, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	MirrorDownloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warehub_mirror_download_bytes_total",
			Help: "Total number of release asset bytes downloaded.",
		},
	)
)

// Site generation metrics.
//
// SitePagesTotal is a CounterVec with label {view}: home, project, release,
// simple_index, simple_project, json, redirect.
//
// SiteGenerateDuration observes one complete generation run.
var (
	SitePagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warehub_site_pages_total",
			Help: "Total number of generated pages, by view.",
		},
		[]string{"view"},
	)

	SiteGenerateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warehub_site_generate_duration_seconds",
			Help:    "Duration of a complete site generation run.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// StoreRecords is a GaugeVec with label {table} set whenever the record store
// is saved.
var StoreRecords = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "warehub_store_records",
		Help: "Number of records per table in the saved record store.",
	},
	[]string{"table"},
)

// WriteTextfile writes the default registry to path for the node-exporter
// textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
