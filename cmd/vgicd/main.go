// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command vgicd is a minimal standalone demonstration of the distributor
// core wired to a host-side maintenance-interrupt source and a live debug
// dashboard. It is not part of the emulated register set; real integrations
// drive vgic.Vgic from their own fault-dispatch and vCPU-control code.
package main

import (
	"flag"
	"log"
	"net/http"

	_ "github.com/mkevac/debugcharts"
	"golang.org/x/sys/unix"

	"github.com/usbarmory/vgic"
)

// kvmLoader is a ListRegLoader that would, in a real KVM-backed VMM, issue
// the hypercall/ioctl programming a physical list register. Here it only
// logs, the way a development build might stub the call while the rest of
// the pipeline is exercised.
type kvmLoader struct {
	logger *log.Logger
}

func (l *kvmLoader) LoadListReg(vcpu vgic.VCPU, lr int, h *vgic.VirqHandler) error {
	l.logger.Printf("load_list_reg vcpu=%d lr=%d virq=%d", vcpu.ID(), lr, h.VIRQ())
	return nil
}

// maintenanceSource wraps an eventfd(2) descriptor the way a KVM maintenance
// IRQ would be delivered to userspace: the host driver writes to the fd when
// a physical list register retires, and this goroutine drains it and calls
// back into the core.
type maintenanceSource struct {
	fd   int
	vcpu int
	lr   int
	core *vgic.Vgic
}

func newMaintenanceSource(core *vgic.Vgic, vcpu, lr int) (*maintenanceSource, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &maintenanceSource{fd: fd, vcpu: vcpu, lr: lr, core: core}, nil
}

func (m *maintenanceSource) signal() error {
	buf := make([]byte, 8)
	buf[0] = 1
	_, err := unix.Write(m.fd, buf)
	return err
}

func (m *maintenanceSource) run() {
	buf := make([]byte, 8)

	for {
		if _, err := unix.Read(m.fd, buf); err != nil {
			return
		}

		if err := m.core.OnLRFreed(m.vcpu, m.lr); err != nil {
			log.Printf("on_lr_freed(vcpu=%d, lr=%d): %v", m.vcpu, m.lr, err)
		}
	}
}

func main() {
	numVCPUs := flag.Int("vcpus", 1, "number of virtual CPUs")
	debugAddr := flag.String("debug-addr", "127.0.0.1:6969", "address for the /debug/charts/ dashboard")
	flag.Parse()

	logger := log.New(log.Writer(), "vgicd: ", log.LstdFlags)

	loader := &kvmLoader{logger: logger}

	core := vgic.New(vgic.Config{
		NumVCPUs: *numVCPUs,
		Loader:   loader,
		Logger:   logger,
	})

	maint, err := newMaintenanceSource(core, 0, 0)
	if err != nil {
		logger.Fatalf("eventfd: %v", err)
	}
	go maint.run()

	http.Handle("/debug/vgic/stats", core)

	go func() {
		logger.Printf("serving debug charts at http://%s/debug/charts/", *debugAddr)
		logger.Printf("serving vgic occupancy stats at http://%s/debug/vgic/stats", *debugAddr)
		logger.Fatal(http.ListenAndServe(*debugAddr, nil))
	}()

	select {}
}
