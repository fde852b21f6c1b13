// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

// AckFunc is invoked when a virtual IRQ is effectively retired, so the
// backend device or source may re-raise it (spec §4.B).
type AckFunc func(vcpu int, virq int, token interface{})

// VirqHandler is the registration record for a virtual interrupt source.
// SGI/PPI handlers are scoped to one vCPU; SPI handlers are global.
type VirqHandler struct {
	virq  int
	ack   AckFunc
	token interface{}
}

// VIRQ returns the interrupt number this handler was registered for.
func (h *VirqHandler) VIRQ() int {
	return h.virq
}

// handlerTable is the registry described in spec §4.B: per-vCPU slots for
// SGI/PPI (O(1) lookup) and a flat, linearly-scanned table for SPI.
type handlerTable struct {
	sgiPPI   [][GICSPIIRQMin]*VirqHandler // [vcpu][virq]
	spi      []*VirqHandler               // index has no meaning beyond occupancy
	maxVIRQs int
}

func newHandlerTable(numVCPUs, maxVIRQs int) *handlerTable {
	t := &handlerTable{
		sgiPPI:   make([][GICSPIIRQMin]*VirqHandler, numVCPUs),
		spi:      make([]*VirqHandler, maxVIRQs),
		maxVIRQs: maxVIRQs,
	}

	return t
}

// register adds a handler for virq, scoped by vcpu for SGI/PPI lines.
func (t *handlerTable) register(vcpu, virq int, ack AckFunc, token interface{}) (*VirqHandler, error) {
	h := &VirqHandler{virq: virq, ack: ack, token: token}

	if isPrivate(virq) {
		if t.sgiPPI[vcpu][virq] != nil {
			return nil, ErrAlreadyRegistered
		}

		t.sgiPPI[vcpu][virq] = h
		return h, nil
	}

	for _, existing := range t.spi {
		if existing != nil && existing.virq == virq {
			return nil, ErrAlreadyRegistered
		}
	}

	for i, slot := range t.spi {
		if slot == nil {
			t.spi[i] = h
			return h, nil
		}
	}

	return nil, ErrNoSpace
}

// find looks up the handler registered for virq on vcpu, or nil.
func (t *handlerTable) find(vcpu, virq int) *VirqHandler {
	if isPrivate(virq) {
		return t.sgiPPI[vcpu][virq]
	}

	for _, h := range t.spi {
		if h != nil && h.virq == virq {
			return h
		}
	}

	return nil
}

// ackHandler invokes the handler's callback with (vcpu, virq, token).
func (t *handlerTable) ackHandler(vcpu int, h *VirqHandler) {
	if h == nil || h.ack == nil {
		return
	}

	h.ack(vcpu, h.virq, h.token)
}
