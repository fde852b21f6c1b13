// vGIC distributor emulation
// https://github.com/usbarmory/vgic
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package vgic

import "testing"

func TestHandlerTableSGIPPIScope(t *testing.T) {
	tab := newHandlerTable(2, 200)

	if _, err := tab.register(0, 2, nil, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := tab.register(0, 2, nil, nil); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	// same virq on a different vCPU is a distinct slot
	if _, err := tab.register(1, 2, nil, nil); err != nil {
		t.Fatalf("register on vcpu 1: %v", err)
	}

	if tab.find(0, 2) == nil || tab.find(1, 2) == nil {
		t.Fatalf("expected handlers registered on both vcpus")
	}
}

func TestHandlerTableSPIUniqueness(t *testing.T) {
	tab := newHandlerTable(1, 4)

	if _, err := tab.register(0, 100, nil, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := tab.register(0, 100, nil, nil); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered for duplicate SPI, got %v", err)
	}
}

func TestHandlerTableNoSpace(t *testing.T) {
	tab := newHandlerTable(1, 2)

	if _, err := tab.register(0, 100, nil, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := tab.register(0, 101, nil, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := tab.register(0, 102, nil, nil); err != ErrNoSpace {
		t.Fatalf("expected ErrNoSpace, got %v", err)
	}
}

func TestHandlerAck(t *testing.T) {
	tab := newHandlerTable(1, 4)

	var got struct {
		vcpu, virq int
		token      interface{}
	}

	h, err := tab.register(0, 100, func(vcpu, virq int, token interface{}) {
		got.vcpu, got.virq, got.token = vcpu, virq, token
	}, "tok")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tab.ackHandler(0, h)

	if got.vcpu != 0 || got.virq != 100 || got.token != "tok" {
		t.Fatalf("unexpected ack args: %+v", got)
	}
}
