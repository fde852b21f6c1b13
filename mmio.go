// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import "math/bits"

// HandleDistFault is the MMIO trap entry point (spec §4.D, §6
// handle_dist_fault). vcpuID identifies the faulting vCPU and vm is queried
// for SGI dispatch target online state; vm may be nil for single-vCPU
// tests that never exercise SGIR.
func (g *Vgic) HandleDistFault(vcpuID int, vm VM, offset uint64, fault Fault) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case offset == offCTLR:
		g.rwWord(fault, &g.dist.ctlr)

	case offset == offTYPER:
		g.roWord(fault, g.dist.typer)

	case offset == offIIDR:
		g.roWord(fault, g.dist.iidr)

	case offset >= 0x00c && offset < 0x080:
		g.ignore(fault, offset)

	case offset >= offIGROUP && offset < offISENABLE:
		g.groupAccess(fault, vcpuID, offset)

	case offset >= offISENABLE && offset < offICENABLE:
		g.enableAccess(fault, vcpuID, offset, offISENABLE, true)

	case offset >= offICENABLE && offset < offISPEND:
		g.enableAccess(fault, vcpuID, offset, offICENABLE, false)

	case offset >= offISPEND && offset < offICPEND:
		g.pendingAccess(fault, vcpuID, offset, offISPEND, true)

	case offset >= offICPEND && offset < offISACTIVE:
		g.pendingAccess(fault, vcpuID, offset, offICPEND, false)

	case offset >= offISACTIVE && offset < offICACTIVE:
		g.activeAccess(fault, vcpuID, offset, offISACTIVE)

	case offset >= offICACTIVE && offset < offIPRIORITY:
		g.activeAccess(fault, vcpuID, offset, offICACTIVE)

	case offset >= offIPRIORITY && offset < offITARGETS:
		g.priorityAccess(fault, vcpuID, offset)

	case offset >= offITARGETS && offset < offICFGR:
		g.targetsAccess(fault, vcpuID, offset)

	case offset >= offICFGR && offset < offSPI:
		g.configAccess(fault, offset)

	case offset >= offSPI && offset <= offSPIEnd:
		g.spiExtAccess(fault, offset)

	case offset == offSGIR:
		g.sgirAccess(fault, vcpuID, vm)

	case offset >= offCPENDSGIR && offset <= offSPENDSGIREnd:
		g.sgiPendingAccess(fault, vcpuID, offset)

	case offset >= offPeriphID && offset <= offPeriphIDEnd:
		g.periphIDAccess(fault, offset)

	default:
		g.ignore(fault, offset)
	}

	if fault.IsRead() {
		fault.AdvanceFault()
	} else {
		fault.IgnoreFault()
	}
}

func (g *Vgic) ignore(fault Fault, offset uint64) {
	g.logIgnored("ignored guest access at distributor offset 0x%x", offset)
}

func (g *Vgic) roWord(fault Fault, word uint32) {
	if fault.IsRead() {
		fault.SetData(word & fault.DataMask())
	}
	// writes to read-only registers are silently dropped
}

func (g *Vgic) rwWord(fault Fault, word *uint32) {
	if fault.IsRead() {
		fault.SetData(*word & fault.DataMask())
		return
	}

	*word = Emulate(fault, *word)
}

// groupAccess implements IGROUPR0..N: read/write passthrough, emulated
// write-through per spec §4.D.
func (g *Vgic) groupAccess(fault Fault, vcpu int, offset uint64) {
	idx := int((offset - offIGROUP) / 4)

	if idx == 0 {
		g.rwWord(fault, &g.dist.group0[vcpu])
		return
	}

	gi := idx - 1
	if gi >= len(g.dist.group) {
		g.ignore(fault, offset)
		return
	}

	g.rwWord(fault, &g.dist.group[gi])
}

// activeAccess implements ISACTIVER/ICACTIVER: emulated write-through on
// the active bank (spec §4.D). Both IS and IC read the same shadow word
// and both mirror words are updated together on write, honoring the
// paired-bank invariant (spec §9: the source's ICACTIVER0 write path
// stores into active_clr0 the value it read from active0 -- this
// implementation keeps both mirrors consistent instead).
func (g *Vgic) activeAccess(fault Fault, vcpu int, offset uint64, base uint64) {
	regIndex := int((offset - base) / 4)

	if regIndex == 0 {
		g.rwWord(fault, &g.dist.active0[vcpu])
		if !fault.IsRead() {
			g.dist.activeClr0[vcpu] = g.dist.active0[vcpu]
		}
		return
	}

	gi := regIndex - 1
	if gi < 0 || gi >= len(g.dist.active) {
		g.ignore(fault, offset)
		return
	}

	g.rwWord(fault, &g.dist.active[gi])
	if !fault.IsRead() {
		g.dist.activeClr[gi] = g.dist.active[gi]
	}
}

// enableAccess implements ISENABLER0..N / ICENABLER0..N (spec §4.D). Reads
// always return the enable-set shadow word (paired-bank invariant); writes
// are bit-iterated and call enable_irq (set) or disable_irq (clear) for
// each set bit, per spec §4.D's "write-side, bit-iterated registers"
// discipline.
func (g *Vgic) enableAccess(fault Fault, vcpu int, offset uint64, base uint64, set bool) {
	regIndex := int((offset - base) / 4)

	if fault.IsRead() {
		fault.SetData(g.enableWord(vcpu, regIndex) & fault.DataMask())
		return
	}

	data := fault.Data() & fault.DataMask()

	for data != 0 {
		bit := bits.TrailingZeros32(data)
		data &= data - 1

		virq := bit + regIndex*32

		if set {
			g.enableIRQLocked(vcpu, virq)
		} else {
			g.disableIRQLocked(vcpu, virq)
		}
	}
}

// pendingAccess implements ISPENDR0..N / ICPENDR0..N (spec §4.D). Reads
// return the pending-set shadow word; writes are bit-iterated and call
// set_pending_irq (set) or clr_pending_irq (clear) for each set bit.
func (g *Vgic) pendingAccess(fault Fault, vcpu int, offset uint64, base uint64, set bool) {
	regIndex := int((offset - base) / 4)

	if fault.IsRead() {
		fault.SetData(g.pendingWord(vcpu, regIndex) & fault.DataMask())
		return
	}

	data := fault.Data() & fault.DataMask()

	for data != 0 {
		bit := bits.TrailingZeros32(data)
		data &= data - 1

		virq := bit + regIndex*32

		if set {
			g.setPendingIRQLocked(vcpu, virq)
		} else {
			g.clrPendingIRQLocked(vcpu, virq)
		}
	}
}

func (g *Vgic) enableWord(vcpu, regIndex int) uint32 {
	if regIndex == 0 {
		return g.dist.enableSet0[vcpu]
	}

	gi := regIndex - 1
	if gi < 0 || gi >= len(g.dist.enableSet) {
		return 0
	}

	return g.dist.enableSet[gi]
}

func (g *Vgic) pendingWord(vcpu, regIndex int) uint32 {
	if regIndex == 0 {
		return g.dist.pendingSet0[vcpu]
	}

	gi := regIndex - 1
	if gi < 0 || gi >= len(g.dist.pendingSet) {
		return 0
	}

	return g.dist.pendingSet[gi]
}

// priorityAccess implements IPRIORITYRx: byte-granular, read-only in this
// design (spec §4.D: writes ignored).
func (g *Vgic) priorityAccess(fault Fault, vcpu int, offset uint64) {
	if !fault.IsRead() {
		g.logIgnored("ignored write to read-only priority register at offset 0x%x", offset)
		return
	}

	byteOff := offset - offIPRIORITY
	word := g.priorityWord(vcpu, byteOff)
	fault.SetData(word & fault.DataMask())
}

func (g *Vgic) priorityWord(vcpu int, byteOff uint64) uint32 {
	if byteOff < 32 {
		b := g.dist.priority0[vcpu]
		return uint32(b[byteOff]) | uint32(b[byteOff+1])<<8 | uint32(b[byteOff+2])<<16 | uint32(b[byteOff+3])<<24
	}

	gi := byteOff - 32
	if int(gi+3) >= len(g.dist.priority) {
		return 0
	}

	return uint32(g.dist.priority[gi]) | uint32(g.dist.priority[gi+1])<<8 | uint32(g.dist.priority[gi+2])<<16 | uint32(g.dist.priority[gi+3])<<24
}

// targetsAccess implements ITARGETSRx: byte-granular, read-only.
func (g *Vgic) targetsAccess(fault Fault, vcpu int, offset uint64) {
	if !fault.IsRead() {
		g.logIgnored("ignored write to read-only targets register at offset 0x%x", offset)
		return
	}

	byteOff := offset - offITARGETS

	if byteOff < 32 {
		b := g.dist.targets0[vcpu]
		val := uint32(b[byteOff]) | uint32(b[byteOff+1])<<8 | uint32(b[byteOff+2])<<16 | uint32(b[byteOff+3])<<24
		fault.SetData(val & fault.DataMask())
		return
	}

	gi := byteOff - 32
	if int(gi+3) >= len(g.dist.targets) {
		fault.SetData(0)
		return
	}

	val := uint32(g.dist.targets[gi]) | uint32(g.dist.targets[gi+1])<<8 | uint32(g.dist.targets[gi+2])<<16 | uint32(g.dist.targets[gi+3])<<24
	fault.SetData(val & fault.DataMask())
}

// configAccess implements ICFGR: word-granular, read-only.
func (g *Vgic) configAccess(fault Fault, offset uint64) {
	if !fault.IsRead() {
		g.logIgnored("ignored write to read-only ICFGR at offset 0x%x", offset)
		return
	}

	idx := int((offset - offICFGR) / 4)
	if idx < 0 || idx >= len(g.dist.config) {
		fault.SetData(0)
		return
	}

	fault.SetData(g.dist.config[idx] & fault.DataMask())
}

// spiExtAccess implements the 0xD00-0xDE4 SPI extension window: read-only.
func (g *Vgic) spiExtAccess(fault Fault, offset uint64) {
	if !fault.IsRead() {
		g.logIgnored("ignored write to read-only SPI extension register at offset 0x%x", offset)
		return
	}

	idx := int((offset - offSPI) / 4)
	if idx < 0 || idx >= len(g.dist.spi) {
		fault.SetData(0)
		return
	}

	fault.SetData(g.dist.spi[idx] & fault.DataMask())
}

// sgirAccess implements the SGIR write (spec §4.E cross-vCPU dispatch).
// Reads return the last written value.
func (g *Vgic) sgirAccess(fault Fault, vcpu int, vm VM) {
	if fault.IsRead() {
		fault.SetData(g.dist.sgiControl & fault.DataMask())
		return
	}

	value := Emulate(fault, g.dist.sgiControl)
	g.dist.sgiControl = value

	g.dispatchSGILocked(vcpu, vm, value)
}

// sgiPendingAccess implements CPENDSGIR/SPENDSGIR: reads return zero (no
// SGI pending state is kept, since writes are rejected); writes are
// unimplemented and
// logged rather than asserted (spec §9, resolving the open question in
// favor of log-and-ignore to match the treatment of every other
// unimplemented write in this dispatcher).
func (g *Vgic) sgiPendingAccess(fault Fault, vcpu int, offset uint64) {
	if fault.IsRead() {
		fault.SetData(0)
		return
	}

	g.logIgnored("unimplemented SGI pending write at offset 0x%x (vcpu=%d)", offset, vcpu)
}

// periphIDAccess implements the component/peripheral ID block: read-only
// byte array.
func (g *Vgic) periphIDAccess(fault Fault, offset uint64) {
	if !fault.IsRead() {
		g.logIgnored("ignored write to read-only periph id register at offset 0x%x", offset)
		return
	}

	byteOff := offset - offPeriphID
	if int(byteOff+3) >= len(g.dist.periphID) {
		fault.SetData(0)
		return
	}

	b := g.dist.periphID
	val := uint32(b[byteOff]) | uint32(b[byteOff+1])<<8 | uint32(b[byteOff+2])<<16 | uint32(b[byteOff+3])<<24
	fault.SetData(val & fault.DataMask())
}
