// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

// enableIRQLocked implements spec §4.E enable_irq. Callers must hold g.mu.
func (g *Vgic) enableIRQLocked(vcpu, virq int) {
	h := g.handlers.find(vcpu, virq)

	g.dist.setEnable(virq, true, vcpu)

	// STATE b: enabling a quiescent (not currently pending) IRQ tells
	// the backend it may re-raise.
	if h != nil && !g.dist.isPending(virq, vcpu) {
		g.handlers.ackHandler(vcpu, h)
	}
}

// disableIRQLocked implements spec §4.E disable_irq. SGIs cannot be
// disabled; guests routinely attempt this during boot and the write is a
// silent no-op.
func (g *Vgic) disableIRQLocked(vcpu, virq int) {
	if isSGI(virq) {
		return
	}

	g.dist.setEnable(virq, false, vcpu)
}

// setPendingIRQLocked implements spec §4.E set_pending_irq / §4.F
// inject_irq (STATE c). Callers must hold g.mu.
func (g *Vgic) setPendingIRQLocked(vcpu, virq int) error {
	if !g.dist.distEnabled() {
		return ErrNotDeliverable
	}

	h := g.handlers.find(vcpu, virq)
	if h == nil {
		return ErrNotDeliverable
	}

	if !g.dist.isEnabled(virq, vcpu) {
		return ErrNotDeliverable
	}

	if g.dist.isPending(virq, vcpu) {
		// already pending: no-op success, no double enqueue.
		return nil
	}

	g.dist.setPending(virq, true, vcpu)

	vi := g.inject[vcpu]

	if err := vi.enqueue(h); err != nil {
		g.log.Printf("set_pending_irq(vcpu=%d, virq=%d): %v", vcpu, virq, err)
		return err
	}

	queuedTotal.Add(1)

	lr := vi.findEmptyLR()
	if lr < 0 {
		// no free LR: the maintenance path (OnLRFreed) will promote
		// this handler later.
		return nil
	}

	promoted := vi.dequeue()
	if promoted == nil {
		return nil
	}

	if g.loader != nil {
		if err := g.loader.LoadListReg(localVCPU{id: vcpu}, lr, promoted); err != nil {
			return err
		}
	}

	vi.shadowLR(lr, promoted)
	injectedTotal.Add(1)

	return nil
}

// clrPendingIRQLocked implements spec §4.E clr_pending_irq. Removing an
// IRQ that has already been loaded into a list register is a known gap in
// the source and is not implemented here either (spec §4.E).
func (g *Vgic) clrPendingIRQLocked(vcpu, virq int) {
	g.dist.setPending(virq, false, vcpu)
}

// dispatchSGILocked decodes an SGIR write and fans it out to target vCPUs
// (spec §4.E "SGIR write (cross-vCPU dispatch)").
func (g *Vgic) dispatchSGILocked(requester int, vm VM, value uint32) {
	filter := (value >> 24) & 0x3
	cpuTargetList := (value >> 16) & 0xff
	virq := int(value & 0xf)

	var mask uint32

	switch filter {
	case sgiTargetListSpecified:
		mask = cpuTargetList
	case sgiTargetListOthers:
		mask = (uint32(1)<<uint(g.numVCPUs) - 1) &^ (1 << uint(requester))
	case sgiTargetListSelf:
		mask = 1 << uint(requester)
	default:
		return
	}

	for i := 0; i < g.numVCPUs; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}

		if vm != nil {
			target := vm.VCPU(i)
			if !vm.IsOnline(target) {
				continue
			}
		}

		// Cross-vCPU dispatch mutates target vCPU i's injection
		// state directly (spec §5): the caller is responsible for
		// ensuring vCPU i is not concurrently executing vgic code.
		g.setPendingIRQLocked(i, virq)
	}
}
