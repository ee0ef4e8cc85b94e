//go:build tinygo && mpfs

package main

import (
	"device/riscv"
	"runtime/volatile"
	"unsafe"

	"hartlink/core"
)

const (
	clintBase = 0x02000000 // msip[h] at clintBase + 4*h

	mipMSIP    = 1 << 3
	mipMEIP    = 1 << 11
	mstatusMIE = 1 << 3
)

// Hart is the hart executing this code
type Hart struct {
	id core.HartID
}

var _ core.Hart = (*Hart)(nil)

// CurrentHart reads mhartid
func CurrentHart() *Hart {
	return &Hart{id: core.HartID(riscv.MHARTID.Get())}
}

func msip(h core.HartID) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(clintBase + 4*uintptr(h))))
}

// ID implements core.Hart
func (h *Hart) ID() core.HartID {
	return h.id
}

// SoftwarePending implements core.Hart
func (h *Hart) SoftwarePending() bool {
	return riscv.MIP.Get()&mipMSIP != 0
}

// WaitForInterrupt implements core.Hart
func (h *Hart) WaitForInterrupt() {
	riscv.Asm("wfi")
}

// EnableInterrupts implements core.Hart. The software interrupt is enabled
// in mie from reset so the boot barrier can wake on it.
func (h *Hart) EnableInterrupts() {
	riscv.MIE.SetBits(mipMEIP | mipMSIP)
	riscv.MSTATUS.SetBits(mstatusMIE)
}

// enableSoftwareWake lets msip end a wfi while mstatus.MIE is still clear
func (h *Hart) enableSoftwareWake() {
	riscv.MIE.SetBits(mipMSIP)
}
