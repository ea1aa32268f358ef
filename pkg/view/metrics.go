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

package view

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsGhost holds Prometheus metrics for ghost-import resolution.
type metricsGhost struct {
	once sync.Once

	expansions     prometheus.Counter
	ghostsAdmitted prometheus.Counter
	truncations    prometheus.Counter
}

var ghostMetrics metricsGhost

func (m *metricsGhost) init() {
	m.once.Do(func() {
		m.expansions = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ghost_expansions_total", Help: "Expansiones de ghost-imports ejecutadas"})
		m.ghostsAdmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ghost_atoms_admitted_total", Help: "Átomos ghost admitidos bajo los límites de la política"})
		m.truncations = prometheus.NewCounter(prometheus.CounterOpts{Name: "cg_ghost_truncations_total", Help: "Expansiones truncadas por algún límite"})

		prometheus.MustRegister(m.expansions, m.ghostsAdmitted, m.truncations)
	})
}

func (m *metricsGhost) recordExpansion(ghosts int, truncated bool) {
	m.init()
	m.expansions.Inc()
	m.ghostsAdmitted.Add(float64(ghosts))
	if truncated {
		m.truncations.Inc()
	}
}
