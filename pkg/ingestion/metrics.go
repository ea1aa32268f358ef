// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the ingestion subsystem.
type metricsIngestion struct {
	once sync.Once

	// Throughput
	filesProcessed prometheus.Counter
	atomsAdded     prometheus.Counter
	edgesAdded     prometheus.Counter

	// Failures
	parseErrors prometheus.Counter
	warnings    prometheus.Counter

	// Batches
	batchesCommitted prometheus.Counter

	// Durations
	parseDuration prometheus.Histogram
	writeDuration prometheus.Histogram
	totalDuration prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.filesProcessed = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_files_processed_total", Help: "Archivos procesados por ingesta"})
		m.atomsAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_atoms_added_total", Help: "Átomos añadidos al grafo"})
		m.edgesAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_edges_added_total", Help: "Edges añadidos al grafo"})

		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_parse_errors_total", Help: "Archivos saltados por error de parseo"})
		m.warnings = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_warnings_total", Help: "Warnings adjuntos a resultados de ingesta"})

		m.batchesCommitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ing_batches_committed_total", Help: "Batches confirmados en el journal"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cg_ing_parse_seconds", Help: "Duración de parseo y extracción", Buckets: buckets})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cg_ing_write_seconds", Help: "Duración de escrituras", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cg_ing_total_seconds", Help: "Duración total de la ejecución", Buckets: buckets})

		prometheus.MustRegister(
			m.filesProcessed, m.atomsAdded, m.edgesAdded,
			m.parseErrors, m.warnings,
			m.batchesCommitted,
			m.parseDuration, m.writeDuration, m.totalDuration,
		)
	})
}
