// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

// fakeFault is a minimal Fault implementation for tests, standing in for
// the (out of scope) MMIO trap decoder.
type fakeFault struct {
	addr uint64
	data uint32
	mask uint32
	read bool

	advanced bool
	ignored  bool
}

func (f *fakeFault) Address() uint64  { return f.addr }
func (f *fakeFault) Data() uint32     { return f.data }
func (f *fakeFault) DataMask() uint32 { return f.mask }
func (f *fakeFault) SetData(v uint32) { f.data = v }
func (f *fakeFault) IsRead() bool     { return f.read }
func (f *fakeFault) AdvanceFault()    { f.advanced = true }
func (f *fakeFault) IgnoreFault()     { f.ignored = true }

func readWord(g *Vgic, vcpu int, offset uint64) uint32 {
	f := &fakeFault{read: true, mask: 0xffffffff}
	g.HandleDistFault(vcpu, nil, offset, f)
	return f.data
}

func writeWord(g *Vgic, vcpu int, offset uint64, data uint32) {
	f := &fakeFault{read: false, mask: 0xffffffff, data: data}
	g.HandleDistFault(vcpu, nil, offset, f)
}

// fakeLoader records LoadListReg calls for assertions.
type fakeLoader struct {
	calls []loadCall
	err   error
}

type loadCall struct {
	vcpu int
	lr   int
	h    *VirqHandler
}

func (l *fakeLoader) LoadListReg(vcpu VCPU, lr int, h *VirqHandler) error {
	l.calls = append(l.calls, loadCall{vcpu: vcpu.ID(), lr: lr, h: h})
	return l.err
}

// fakeVM implements VM for SGI dispatch tests.
type fakeVM struct {
	vcpus  []*fakeVCPU
	online map[int]bool
}

type fakeVCPU struct {
	id int
	vm VM
}

func (v *fakeVCPU) ID() int { return v.id }
func (v *fakeVCPU) VM() VM  { return v.vm }

func newFakeVM(n int) *fakeVM {
	vm := &fakeVM{online: make(map[int]bool)}
	for i := 0; i < n; i++ {
		vm.vcpus = append(vm.vcpus, &fakeVCPU{id: i, vm: vm})
		vm.online[i] = true
	}
	return vm
}

func (vm *fakeVM) NumVCPUs() int { return len(vm.vcpus) }
func (vm *fakeVM) VCPU(i int) VCPU { return vm.vcpus[i] }
func (vm *fakeVM) IsOnline(vcpu VCPU) bool {
	return vm.online[vcpu.ID()]
}
