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
	"net/http/httptest"
	"testing"
)

func TestSnapshotReflectsOccupancy(t *testing.T) {
	loader := &fakeLoader{}
	g := newTestVgic(1, loader)
	g.dist.enableDist()

	if _, err := g.RegisterIRQ(0, 50, nil, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	g.enableIRQLocked(0, 50)

	if err := g.InjectIRQ(0, 50); err != nil {
		t.Fatalf("inject: %v", err)
	}

	stats := g.Snapshot()
	if len(stats) != 1 {
		t.Fatalf("expected 1 vcpu snapshot, got %d", len(stats))
	}

	if stats[0].LRsOccupied != 1 {
		t.Fatalf("expected 1 occupied LR, got %d", stats[0].LRsOccupied)
	}

	if stats[0].QueueLen != 0 {
		t.Fatalf("expected empty queue, got %d", stats[0].QueueLen)
	}
}

func TestServeHTTPEncodesSnapshot(t *testing.T) {
	g := newTestVgic(2, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/vgic/stats", nil)

	g.ServeHTTP(rec, req)

	var stats []Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(stats) != 2 {
		t.Fatalf("expected 2 vcpu entries, got %d", len(stats))
	}
}
