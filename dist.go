// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import "github.com/usbarmory/vgic/bits"

// DistState is the shadow image of the GICv2 distributor registers, banked
// per spec §3: index 0 of every banked field holds the per-vCPU SGI/PPI
// state, indices 1..N hold the shared SPI state.
//
// Every enable/pending/active bit is mirrored into a "_set" and a "_clr"
// word (see the paired-bank invariant in spec §3): both are always written
// together so that reading ISxxxR and ICxxxR yields the same bit pattern,
// matching architectural GICv2 read semantics without tracking separate
// state.
type DistState struct {
	numVCPUs int
	numSPI   int // number of 32-bit SPI words (global banks, beyond bank 0)

	ctlr  uint32
	typer uint32
	iidr  uint32

	periphID [36]byte

	sgiControl uint32

	// per-vCPU banked (SGI+PPI, bank 0)
	enableSet0  []uint32
	enableClr0  []uint32
	pendingSet0 []uint32
	pendingClr0 []uint32
	active0     []uint32
	activeClr0  []uint32
	group0      []uint32
	priority0   [][32]byte
	targets0    [][32]byte

	sgiPendingSet [][4]byte
	sgiPendingClr [][4]byte

	// global (SPI)
	enableSet  []uint32
	enableClr  []uint32
	pendingSet []uint32
	pendingClr []uint32
	active     []uint32
	activeClr  []uint32
	group      []uint32
	priority   []byte
	targets    []byte
	config     []uint32
	spi        []uint32
}

// newDistState allocates shadow storage sized for numVCPUs vCPUs and
// numIRQLines total virtual interrupt lines (SGI+PPI+SPI, rounded up to a
// multiple of 32).
func newDistState(numVCPUs, numIRQLines int) *DistState {
	if numIRQLines < GICSPIIRQMin {
		numIRQLines = GICSPIIRQMin
	}

	numSPIWords := (numIRQLines - GICSPIIRQMin + 31) / 32
	numSPI := numSPIWords

	d := &DistState{
		numVCPUs: numVCPUs,
		numSPI:   numSPI,

		enableSet0:  make([]uint32, numVCPUs),
		enableClr0:  make([]uint32, numVCPUs),
		pendingSet0: make([]uint32, numVCPUs),
		pendingClr0: make([]uint32, numVCPUs),
		active0:     make([]uint32, numVCPUs),
		activeClr0:  make([]uint32, numVCPUs),
		group0:      make([]uint32, numVCPUs),
		priority0:   make([][32]byte, numVCPUs),
		targets0:    make([][32]byte, numVCPUs),

		sgiPendingSet: make([][4]byte, numVCPUs),
		sgiPendingClr: make([][4]byte, numVCPUs),

		enableSet:  make([]uint32, numSPI),
		enableClr:  make([]uint32, numSPI),
		pendingSet: make([]uint32, numSPI),
		pendingClr: make([]uint32, numSPI),
		active:     make([]uint32, numSPI),
		activeClr:  make([]uint32, numSPI),
		group:      make([]uint32, numSPI),
		priority:   make([]byte, numSPI*32),
		targets:    make([]byte, numSPI*32),
		config:     make([]uint32, numSPI*2),
		spi:        make([]uint32, (offSPIEnd-offSPI)/4+1),

		// IC_TYPE: ITLinesNumber (bits 4:0) encodes (N/32)-1 where N
		// is the max IRQ count; CPUNumber (bits 7:5) is vCPUs-1.
		typer: uint32(numSPIWords) | uint32((numVCPUs-1)&0x7)<<5,
		iidr:  0x43b, // Implementer ARM, product id 0, variant 0, rev 0 style encoding
	}

	for i := range d.targets0 {
		for j := range d.targets0[i] {
			d.targets0[i][j] = 1 << uint(i)
		}
	}

	return d
}

func bankWords(virq int) (idx, bit int) {
	return virq / 32, virq % 32
}

// setEnable sets or clears the enable bit for virq on the given vCPU,
// writing both the set and clear mirror words (paired-bank invariant).
func (d *DistState) setEnable(virq int, value bool, vcpu int) {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		bits.SetTo(&d.enableSet0[vcpu], bit, value)
		bits.SetTo(&d.enableClr0[vcpu], bit, value)
		return
	}

	idx -= GICSPIIRQMin / 32
	bits.SetTo(&d.enableSet[idx], bit, value)
	bits.SetTo(&d.enableClr[idx], bit, value)
}

func (d *DistState) isEnabled(virq int, vcpu int) bool {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		return bits.Get(&d.enableSet0[vcpu], bit)
	}

	idx -= GICSPIIRQMin / 32
	return bits.Get(&d.enableSet[idx], bit)
}

// setPending sets or clears the pending bit for virq on the given vCPU.
func (d *DistState) setPending(virq int, value bool, vcpu int) {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		bits.SetTo(&d.pendingSet0[vcpu], bit, value)
		bits.SetTo(&d.pendingClr0[vcpu], bit, value)
		return
	}

	idx -= GICSPIIRQMin / 32
	bits.SetTo(&d.pendingSet[idx], bit, value)
	bits.SetTo(&d.pendingClr[idx], bit, value)
}

func (d *DistState) isPending(virq int, vcpu int) bool {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		return bits.Get(&d.pendingSet0[vcpu], bit)
	}

	idx -= GICSPIIRQMin / 32
	return bits.Get(&d.pendingSet[idx], bit)
}

// setActive sets or clears the active bit for virq on the given vCPU,
// honoring the paired-bank invariant for ISACTIVER/ICACTIVER (spec §9: the
// source's ICACTIVER0 write path stores into active_clr0 the value read
// from active0, which this implementation treats as the intended
// "both mirrors track the same state" behavior rather than reproducing the
// apparent typo literally).
func (d *DistState) setActive(virq int, value bool, vcpu int) {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		bits.SetTo(&d.active0[vcpu], bit, value)
		bits.SetTo(&d.activeClr0[vcpu], bit, value)
		return
	}

	idx -= GICSPIIRQMin / 32
	bits.SetTo(&d.active[idx], bit, value)
	bits.SetTo(&d.activeClr[idx], bit, value)
}

func (d *DistState) isActive(virq int, vcpu int) bool {
	idx, bit := bankWords(virq)

	if isPrivate(virq) {
		return bits.Get(&d.active0[vcpu], bit)
	}

	idx -= GICSPIIRQMin / 32
	return bits.Get(&d.active[idx], bit)
}

func (d *DistState) enableDist()  { bits.Set(&d.ctlr, 0) }
func (d *DistState) disableDist() { bits.Clear(&d.ctlr, 0) }
func (d *DistState) distEnabled() bool { return bits.Get(&d.ctlr, 0) }
