// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import "testing"

func TestPairedBankInvariant(t *testing.T) {
	d := newDistState(2, MaxVIRQs)

	d.setEnable(5, true, 0)
	d.setEnable(100, true, 0)
	d.setPending(5, true, 0)
	d.setActive(100, true, 0)

	if d.enableSet0[0] != d.enableClr0[0] {
		t.Fatalf("SGI/PPI enable set/clr mirrors diverged")
	}

	idx := 100/32 - GICSPIIRQMin/32
	if d.enableSet[idx] != d.enableClr[idx] {
		t.Fatalf("SPI enable set/clr mirrors diverged")
	}

	if d.pendingSet0[0] != d.pendingClr0[0] {
		t.Fatalf("pending set/clr mirrors diverged")
	}

	if d.active[idx] != d.activeClr[idx] {
		t.Fatalf("active set/clr mirrors diverged")
	}
}

func TestEnableISRICRoundTrip(t *testing.T) {
	g := newTestVgic(1, nil)

	writeWord(g, 0, offISENABLE+4, 0x3)
	is1 := readWord(g, 0, offISENABLE+4)
	if is1 != 0x3 {
		t.Fatalf("ISENABLER1 round trip: got 0x%x, want 0x3", is1)
	}

	writeWord(g, 0, offICENABLE+4, 0x1)
	is2 := readWord(g, 0, offISENABLE+4)
	if is2 != 0x2 {
		t.Fatalf("ICENABLER clears bit 0: got 0x%x, want 0x2", is2)
	}

	ic := readWord(g, 0, offICENABLE+4)
	if ic != is2 {
		t.Fatalf("ICENABLER read must mirror ISENABLER: got 0x%x vs 0x%x", ic, is2)
	}
}

func TestPriorityWritesIgnored(t *testing.T) {
	g := newTestVgic(1, nil)

	before := readWord(g, 0, offIPRIORITY)
	writeWord(g, 0, offIPRIORITY, 0xdeadbeef)
	after := readWord(g, 0, offIPRIORITY)

	if before != after {
		t.Fatalf("IPRIORITYR write must be ignored: before=0x%x after=0x%x", before, after)
	}
}
