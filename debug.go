// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import (
	"encoding/json"
	"net/http"
)

// Stats is a point-in-time snapshot of per-vCPU injection pipeline
// occupancy, used by debug/metrics tooling (not part of the emulated
// register set).
type Stats struct {
	VCPU        int
	LRsOccupied int
	QueueLen    int
}

// Snapshot returns occupancy stats for every vCPU.
func (g *Vgic) Snapshot() []Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Stats, g.numVCPUs)

	for i, vi := range g.inject {
		occupied := 0
		for _, h := range vi.lrShadow {
			if h != nil {
				occupied++
			}
		}

		out[i] = Stats{
			VCPU:        i,
			LRsOccupied: occupied,
			QueueLen:    vi.queueLen(),
		}
	}

	return out
}

// ServeHTTP serves Snapshot as JSON, so it can sit next to debugcharts'
// /debug/charts/ dashboard without either side knowing about the other.
func (g *Vgic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.Snapshot())
}
