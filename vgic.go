// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import (
	"expvar"
	"log"
	"os"

	"golang.org/x/time/rate"
	"gvisor.dev/gvisor/pkg/sync"
)

var (
	injectedTotal = expvar.NewInt("vgic_injected_total")
	queuedTotal   = expvar.NewInt("vgic_queued_total")
	ignoredTotal  = expvar.NewInt("vgic_ignored_access_total")
)

// Config configures a Vgic instance at construction time (spec §6
// "Constants exposed" and §3 ownership). There is no file/environment based
// configuration surface — topology is fixed per VM at boot, the same way
// the teacher's hardware drivers take a base address and vCPU/board count
// as Go struct literals rather than parsed config.
type Config struct {
	// NumVCPUs is the number of virtual CPUs in the VM.
	NumVCPUs int
	// NumIRQLines bounds the total SGI+PPI+SPI line count (rounded up to
	// a multiple of 32). Defaults to MaxVIRQs when zero.
	NumIRQLines int
	// MaxVIRQs bounds the SPI handler table size. Defaults to 200.
	MaxVIRQs int
	// Loader programs physical list registers.
	Loader ListRegLoader
	// Logger receives diagnostics; defaults to a logger writing to
	// os.Stderr with the "vgic: " prefix.
	Logger *log.Logger
}

// Vgic is the aggregate owning the distributor shadow state, the VIRQ
// handler table, and the per-vCPU injection pipelines for one VM (spec
// §3 "Ownership").
//
// All entry points execute to completion on the caller's goroutine (spec
// §5: "single-threaded cooperative"); the mutex below exists only to
// satisfy the spec's allowance for "a global lock around the entire vGIC"
// when a VMM reenters the core from more than one OS thread concurrently
// (e.g. one thread per vCPU).
type Vgic struct {
	mu sync.Mutex

	dist     *DistState
	handlers *handlerTable
	inject   []*VcpuInject

	loader ListRegLoader
	log    *log.Logger
	limit  *rate.Limiter

	numVCPUs int
}

// New creates a Vgic for a VM with the given configuration.
func New(cfg Config) *Vgic {
	if cfg.NumVCPUs <= 0 {
		cfg.NumVCPUs = 1
	}

	if cfg.MaxVIRQs <= 0 {
		cfg.MaxVIRQs = 200
	}

	if cfg.NumIRQLines <= 0 {
		cfg.NumIRQLines = MaxVIRQs
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "vgic: ", log.LstdFlags)
	}

	g := &Vgic{
		dist:     newDistState(cfg.NumVCPUs, cfg.NumIRQLines),
		handlers: newHandlerTable(cfg.NumVCPUs, cfg.MaxVIRQs),
		inject:   make([]*VcpuInject, cfg.NumVCPUs),
		loader:   cfg.Loader,
		log:      logger,
		limit:    rate.NewLimiter(rate.Limit(1), 5),
		numVCPUs: cfg.NumVCPUs,
	}

	for i := range g.inject {
		g.inject[i] = newVcpuInject()
	}

	return g
}

// RegisterIRQ registers ack as the handler for virq on behalf of vcpu (spec
// §4.B). SGI/PPI registrations are scoped to vcpu; SPI registrations are
// global and vcpu is only used for logging.
func (g *Vgic) RegisterIRQ(vcpu int, virq int, ack AckFunc, token interface{}) (*VirqHandler, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, err := g.handlers.register(vcpu, virq, ack, token)
	if err != nil {
		g.log.Printf("register_irq(vcpu=%d, virq=%d): %v", vcpu, virq, err)
	}

	return h, err
}

// InjectIRQ is the public entry point for external IRQ sources (spec §4.F):
// a synonym for the set_pending_irq operation (setPendingIRQLocked).
func (g *Vgic) InjectIRQ(vcpu int, virq int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.setPendingIRQLocked(vcpu, virq)
}

// OnLRFreed is the maintenance-interrupt hook (spec §4.C, §6): the physical
// maintenance handler calls this once it observes hardware list register lr
// retiring on vcpu, so the core can clear its shadow and promote the next
// queued IRQ into it. The spec's maintenance contract leaves the exact
// signaling mechanism unspecified; this module resolves that open point by
// having the caller name the freed LR explicitly, since that is what the
// physical maintenance interrupt reports.
func (g *Vgic) OnLRFreed(vcpu int, lr int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	vi := g.inject[vcpu]
	vi.freeLR(lr)

	return g.promoteLocked(vcpu)
}

func (g *Vgic) promoteLocked(vcpu int) error {
	vi := g.inject[vcpu]

	lr := vi.findEmptyLR()
	if lr < 0 {
		return nil
	}

	h := vi.dequeue()
	if h == nil {
		return nil
	}

	if g.loader != nil {
		if err := g.loader.LoadListReg(localVCPU{id: vcpu}, lr, h); err != nil {
			return err
		}
	}

	vi.shadowLR(lr, h)

	return nil
}

// localVCPU is a minimal VCPU implementation used when the core needs to
// hand a vcpu identity to the ListRegLoader without a full VM/VCPU object
// graph (e.g. from OnLRFreed, which only receives an index).
type localVCPU struct {
	id int
}

func (v localVCPU) ID() int { return v.id }
func (v localVCPU) VM() VM  { return nil }

func (g *Vgic) logIgnored(format string, args ...interface{}) {
	ignoredTotal.Add(1)

	if g.limit.Allow() {
		g.log.Printf(format, args...)
	}
}
