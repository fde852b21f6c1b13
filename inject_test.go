// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import "testing"

func TestFindEmptyLR(t *testing.T) {
	vi := newVcpuInject()

	if vi.findEmptyLR() != 0 {
		t.Fatalf("expected lr 0 free on a fresh pipeline")
	}

	vi.shadowLR(0, &VirqHandler{virq: 1})
	vi.shadowLR(1, &VirqHandler{virq: 2})

	if got := vi.findEmptyLR(); got != 2 {
		t.Fatalf("expected lr 2 free, got %d", got)
	}

	for i := 0; i < NumListRegs; i++ {
		vi.shadowLR(i, &VirqHandler{virq: i})
	}

	if vi.findEmptyLR() != -1 {
		t.Fatalf("expected no free lr once all are occupied")
	}
}

func TestRingBufferFIFO(t *testing.T) {
	vi := newVcpuInject()

	for i := 0; i < MaxIRQQueueLen-1; i++ {
		if err := vi.enqueue(&VirqHandler{virq: i}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if err := vi.enqueue(&VirqHandler{virq: 999}); err != ErrQueueFull {
		t.Fatalf("expected ErrQueueFull at capacity, got %v", err)
	}

	for i := 0; i < MaxIRQQueueLen-1; i++ {
		h := vi.dequeue()
		if h == nil || h.virq != i {
			t.Fatalf("expected FIFO order, got %v at position %d", h, i)
		}
	}

	if vi.dequeue() != nil {
		t.Fatalf("expected empty queue")
	}
}
