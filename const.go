// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package vgic implements a virtual ARM Generic Interrupt Controller (GICv2)
// distributor for use by a hypervisor emulating the distributor MMIO window
// on behalf of a guest operating system.
//
// The emulated register layout follows the GICv2 distributor as described
// in the ARM Generic Interrupt Controller Architecture Specification
// (ARM IHI 0048B).
package vgic

import "errors"

// Interrupt ID ranges (ARM IHI 0048B, §3.1).
const (
	// NumSGI is the number of Software Generated Interrupts.
	NumSGI = 16
	// NumPPI is the number of Private Peripheral Interrupts.
	NumPPI = 16
	// GICSPIIRQMin is the first Shared Peripheral Interrupt number, and
	// therefore the count of private (SGI+PPI) interrupts.
	GICSPIIRQMin = NumSGI + NumPPI

	// MaxVIRQs is the exclusive upper bound on virtual interrupt numbers.
	MaxVIRQs = 1020
)

// Tunable platform limits (spec §6 "Constants exposed").
const (
	// NumListRegs is the number of hardware list registers per vCPU.
	NumListRegs = 4

	// MaxIRQQueueLen is the overflow FIFO capacity per vCPU. Must be a
	// power of two.
	MaxIRQQueueLen = 64
)

// Distributor register map, word offsets within the 4 KiB MMIO window
// (ARM IHI 0048B, Table 4-1).
const (
	offCTLR   = 0x000
	offTYPER  = 0x004
	offIIDR   = 0x008
	offIGROUP = 0x080
	offISENABLE = 0x100
	offICENABLE = 0x180
	offISPEND   = 0x200
	offICPEND   = 0x280
	offISACTIVE = 0x300
	offICACTIVE = 0x380
	offIPRIORITY = 0x400
	offITARGETS  = 0x800
	offICFGR     = 0xc00
	offSPI       = 0xd00
	offSPIEnd    = 0xde4
	offSGIR      = 0xf00
	offCPENDSGIR = 0xf10
	offSPENDSGIR = 0xf20
	offSPENDSGIREnd = 0xf2c
	offPeriphID  = 0xfc0
	offPeriphIDEnd = 0xffb
)

// SGIR target list filter encodings (ARM IHI 0048B, §4.3.15).
const (
	sgiTargetListSpecified = 0
	sgiTargetListOthers    = 1
	sgiTargetListSelf      = 2
)

// Distributor sentinel errors (spec §7 error taxonomy).
var (
	// ErrAlreadyRegistered is returned by RegisterIRQ when the requested
	// virq already has a handler in the requested scope.
	ErrAlreadyRegistered = errors.New("vgic: virq already registered")
	// ErrNoSpace is returned by RegisterIRQ when the SPI handler table is
	// full.
	ErrNoSpace = errors.New("vgic: no space left in handler table")
	// ErrQueueFull is returned when a vCPU's overflow FIFO cannot accept
	// another handler; it indicates MaxIRQQueueLen is undersized for the
	// workload.
	ErrQueueFull = errors.New("vgic: irq overflow queue is full")
	// ErrNotDeliverable is returned by InjectIRQ when the
	// virq has no handler, the distributor is disabled, or the IRQ is
	// not enabled for the target vCPU.
	ErrNotDeliverable = errors.New("vgic: irq not deliverable")
)

func isSGI(virq int) bool { return virq >= 0 && virq < NumSGI }
func isPrivate(virq int) bool { return virq >= 0 && virq < GICSPIIRQMin }
