//go:build tinygo && mpfs

package main

import (
	"runtime/volatile"
	"unsafe"

	"hartlink/core"
)

const (
	plicBase      = 0x0C000000
	plicEnable    = plicBase + 0x2000   // + context*0x80
	plicThreshold = plicBase + 0x200000 // + context*0x1000
	plicClaim     = plicThreshold + 4
)

// PLIC drives the platform interrupt controller for the machine-mode
// context of one hart, and the CLINT software interrupt bits of all harts
type PLIC struct {
	context uintptr
}

var _ core.InterruptController = (*PLIC)(nil)

// NewPLIC returns the controller view of hart h. Hart 0 (E51) has a single
// context; each U54 has an M and an S context.
func NewPLIC(h core.HartID) *PLIC {
	ctx := uintptr(0)
	if h > 0 {
		ctx = 2*uintptr(h) - 1
	}
	return &PLIC{context: ctx}
}

func reg32(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// SetPriority implements core.InterruptController
func (p *PLIC) SetPriority(src core.IRQSource, level uint32) {
	reg32(plicBase + 4*uintptr(src)).Set(level & 7)
}

// SetPriorityThreshold implements core.InterruptController
func (p *PLIC) SetPriorityThreshold(level uint32) {
	reg32(plicThreshold + p.context*0x1000).Set(level & 7)
}

func (p *PLIC) enableReg(src core.IRQSource) (*volatile.Register32, uint32) {
	addr := plicEnable + p.context*0x80 + 4*uintptr(src/32)
	return reg32(addr), 1 << (src % 32)
}

// EnableSource implements core.InterruptController
func (p *PLIC) EnableSource(src core.IRQSource) {
	r, bit := p.enableReg(src)
	r.SetBits(bit)
}

// DisableSource implements core.InterruptController
func (p *PLIC) DisableSource(src core.IRQSource) {
	r, bit := p.enableReg(src)
	r.ClearBits(bit)
}

// RaiseSoftwareInterrupt implements core.InterruptController
func (p *PLIC) RaiseSoftwareInterrupt(h core.HartID) {
	msip(h).Set(1)
}

// ClearSoftwareInterrupt implements core.InterruptController
func (p *PLIC) ClearSoftwareInterrupt(h core.HartID) {
	msip(h).Set(0)
}

// Claim returns the highest priority pending source, 0 if none
func (p *PLIC) Claim() core.IRQSource {
	return core.IRQSource(reg32(plicClaim + p.context*0x1000).Get())
}

// Complete signals the end of handling a claimed source
func (p *PLIC) Complete(src core.IRQSource) {
	reg32(plicClaim + p.context*0x1000).Set(uint32(src))
}
