// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

// Fault is the MMIO trap object handed to the core by the (out of scope)
// fault-delivery mechanism, per spec §6.
type Fault interface {
	Address() uint64
	Data() uint32
	DataMask() uint32
	SetData(uint32)
	IsRead() bool
	AdvanceFault()
	IgnoreFault()
}

// Emulate computes the post-write value of a word-granular register given
// its previous contents and a masked fault write, i.e.
// (prev &^ mask) | (data & mask) (spec §6: fault_emulate).
func Emulate(fault Fault, prev uint32) uint32 {
	mask := fault.DataMask()
	return (prev &^ mask) | (fault.Data() & mask)
}

// VCPU is the subset of the hypervisor's vCPU object the distributor
// consumes (spec §6).
type VCPU interface {
	ID() int
	VM() VM
}

// VM is the subset of the hypervisor's VM object the distributor consumes.
type VM interface {
	NumVCPUs() int
	VCPU(i int) VCPU
	IsOnline(vcpu VCPU) bool
}

// ListRegLoader programs a physical list register with the given handler's
// virtual interrupt (spec §6: load_list_reg). It returns an error if the
// hypervisor could not program the LR; the error propagates back to the
// caller of InjectIRQ or OnLRFreed.
type ListRegLoader interface {
	LoadListReg(vcpu VCPU, lr int, h *VirqHandler) error
}
