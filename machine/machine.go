// Package machine implements the 8080 CPU, bus and CP/M 2.2 BDOS/BIOS
// surface described by the embedding API in §4 and §7: register and
// flag state, a 64K byte-addressed bus, the two-drive SSSD disk
// controller with its directory, a ring-buffered console, and the
// single-RST interrupt latch, all reachable from one allocated Machine
// value rather than package-level singletons.
package machine

import (
	"fmt"
	"log/slog"
)

// Machine is the complete embeddable virtual machine (§7). Callers
// construct one with New, Load a program, then drive it with Step or
// Run.
type Machine struct {
	Regs      Registers
	Flags     Flags
	Bus       Bus
	Interrupt Interrupt
	Console   Console
	Disk      Disk
	Directory *Directory

	halted bool

	stepCount   uint64
	lastIllegal error

	// lookBefore/lookAfter are the three bytes at PC captured before and
	// after the most recent Step, backing the Instructions lookahead
	// window an external stepper/debugger reads (§6).
	lookBefore [3]byte
	lookAfter  [3]byte

	// persist, if set, is invoked whenever a sector write needs to be
	// flushed to the host filesystem (§4.8). Wired by the image loader,
	// left nil by tests that only exercise in-memory behaviour.
	persist func(drive int)
}

// New returns a freshly reset Machine with empty disk images.
func New() *Machine {
	m := &Machine{Disk: *newDisk()}
	m.Directory = newDirectory(&m.Disk)
	m.Disk.onSectorWritten = func(drive int) {
		if m.persist != nil {
			m.persist(drive)
		}
	}
	for drive := 0; drive < numDrives; drive++ {
		m.Disk.dirBase[drive] = m.Directory.detectBase(drive)
	}
	return m
}

// SetPersistHook installs the callback invoked after a sector write so
// an image loader can flush the changed drive to its host file (§4.8).
// Passing nil disables persistence.
func (m *Machine) SetPersistHook(fn func(drive int)) {
	m.persist = fn
}

// Load copies data into the bus starting at origin and points PC at it,
// ready for Step/Run (§7 "load").
func (m *Machine) Load(data []byte, origin uint16) {
	m.Bus.WriteBlock(origin, data)
	m.Regs.PC = origin
	m.refreshLookahead()
}

// SetPC moves the program counter without touching memory and refreshes
// the lookahead window (§7 "set_pc") so Instructions reflects the new
// location even before the next Step.
func (m *Machine) SetPC(addr uint16) {
	m.Regs.PC = addr
	m.refreshLookahead()
}

// refreshLookahead captures the three bytes at the current PC into both
// halves of the lookahead window.
func (m *Machine) refreshLookahead() {
	w := m.bytesAt(m.Regs.PC)
	m.lookBefore = w
	m.lookAfter = w
}

// bytesAt reads memory directly rather than through Bus.Read, so the
// lookahead capture does not move the address-bus witness.
func (m *Machine) bytesAt(pc uint16) [3]byte {
	return [3]byte{m.Bus.mem[pc], m.Bus.mem[pc+1], m.Bus.mem[pc+2]}
}

// Halted reports whether the CPU is stopped on a HLT or an illegal
// opcode.
func (m *Machine) Halted() bool {
	return m.halted
}

// LastIllegalOpcode returns the error recorded by the most recent
// illegal-opcode fault, or nil if none has occurred.
func (m *Machine) LastIllegalOpcode() error {
	return m.lastIllegal
}

// Step executes exactly one instruction (or replays the BDOS trap CALL
// if it is waiting for console input) and returns the register/flag
// state formatted for display (§7 "step"). It captures the three bytes
// at PC before executing and the three bytes at the new PC after, for
// Instructions. A halted machine's Step is a no-op that returns the
// same state again.
func (m *Machine) Step() string {
	if !m.halted {
		pc := m.Regs.PC
		m.lookBefore = m.bytesAt(pc)
		handler := opcodeTable[m.Bus.Read(pc)]
		m.Regs.PC = handler(m, pc)
		m.stepCount++
		m.lookAfter = m.bytesAt(m.Regs.PC)
	}
	return m.Dump()
}

// Run executes instructions until the machine halts, an illegal opcode
// is hit, a BDOS console read blocks waiting for input, or max
// instructions have executed (0 means unbounded). It
// returns the number of instructions actually executed.
func (m *Machine) Run(max uint64) uint64 {
	start := m.stepCount
	for !m.halted && !m.Console.IsWaitingForInput() {
		if max != 0 && m.stepCount-start >= max {
			break
		}
		m.Step()
	}
	return m.stepCount - start
}

// StepCount returns the running count of instructions executed since
// the last Reset.
func (m *Machine) StepCount() uint64 {
	return m.stepCount
}

// Instructions returns the three bytes at PC captured before the most
// recent Step followed by the three bytes at PC captured after it
// ([b0,b1,b2, n0,n1,n2], §6), the lookahead window an external
// stepper/debugger reads.
func (m *Machine) Instructions() [6]byte {
	return [6]byte{
		m.lookBefore[0], m.lookBefore[1], m.lookBefore[2],
		m.lookAfter[0], m.lookAfter[1], m.lookAfter[2],
	}
}

// CurrentAddress returns the program counter.
func (m *Machine) CurrentAddress() uint16 {
	return m.Regs.PC
}

// CurrentData returns the byte at PC, the opcode about to execute.
func (m *Machine) CurrentData() byte {
	return m.Bus.Read(m.Regs.PC)
}

// CurrentAddressBus returns the most recent address read or written
// through the bus: after a Step, the last memory access the executed
// instruction made (0 after Reset). The Instructions lookahead capture
// does not move it.
func (m *Machine) CurrentAddressBus() uint16 {
	return m.Bus.AddressBus()
}

// Reset clears registers, flags, the bus, the interrupt latch and the
// console, and re-homes the disk controller, but leaves disk image
// contents and the detected directory base untouched (§4.9, §8 disk
// round-trip).
func (m *Machine) Reset() string {
	m.Regs.reset()
	m.Flags.reset()
	m.Bus.reset()
	m.Interrupt.reset()
	m.Console.reset()
	m.Disk.reset()
	m.halted = false
	m.stepCount = 0
	m.lastIllegal = nil
	m.refreshLookahead()
	return m.Dump()
}

// Dump formats the register dump string in the fixed layout §4.9
// specifies, used by Step/Reset and the reference command loop.
func (m *Machine) Dump() string {
	return fmt.Sprintf(
		"PC:%04X\tA:%02X B:%02X C:%02X D:%02X E:%02X H:%02X L:%02X SP:%04X\n",
		m.Regs.PC, m.Regs.A, m.Regs.B, m.Regs.C, m.Regs.D, m.Regs.E, m.Regs.H, m.Regs.L, m.Regs.SP,
	)
}

// PutChar feeds one host keystroke into the console input ring.
func (m *Machine) PutChar(ch byte) {
	m.Console.PutChar(ch)
}

// GetChar dequeues one pending console output byte, 0 if none pending.
func (m *Machine) GetChar() byte {
	return m.Console.GetChar()
}

// PendingOutput returns every byte currently buffered for console
// output without consuming it.
func (m *Machine) PendingOutput() []byte {
	return m.Console.PendingOutput()
}

// DrainOutput returns every byte currently buffered for console output
// and empties the buffer, for a caller (telnet bridge, REPL) that
// relays bytes exactly once.
func (m *Machine) DrainOutput() []byte {
	return m.Console.Drain()
}

// ConsoleStatus reports whether a console input byte is ready.
func (m *Machine) ConsoleStatus() byte {
	return m.Console.Status()
}

// IsWaitingForInput reports whether the machine is blocked on a console
// read (BDOS fn 1/10). A halt does not set it; see Halted.
func (m *Machine) IsWaitingForInput() bool {
	return m.Console.IsWaitingForInput()
}

// ClearWaiting abandons a pending blocking console read.
func (m *Machine) ClearWaiting() {
	m.Console.ClearWaiting()
}

// SetEcho toggles whether BDOS fn 1 (Console Input) echoes the
// character it reads.
func (m *Machine) SetEcho(on bool) {
	m.Console.SetEcho(on)
}

// TriggerInterrupt latches opcode (typically an RST) as pending (§4.3,
// §7).
func (m *Machine) TriggerInterrupt(opcode byte) {
	m.Interrupt.Trigger(opcode)
}

// CheckInterrupt reports whether an interrupt is both enabled and
// latched, ready for ProcessInterrupt.
func (m *Machine) CheckInterrupt() bool {
	return m.Interrupt.Pending()
}

// ProcessInterrupt executes the latched opcode as if it had just been
// fetched at the current PC, without advancing PC first (the
// instruction itself — typically an RST — determines what happens
// next). It is the host's responsibility to call this only between
// Step calls and only when CheckInterrupt is true.
func (m *Machine) ProcessInterrupt() {
	if !m.Interrupt.Pending() {
		return
	}
	opcode := m.Interrupt.take()
	pc := m.Regs.PC
	next := opcodeTable[opcode](m, pc)
	m.Regs.PC = next
	m.halted = false
}

func (m *Machine) reportIllegal(pc uint16, opcode byte) {
	m.lastIllegal = fmt.Errorf("illegal opcode %#02x at %#04x", opcode, pc)
	slog.Error("illegal opcode", "pc", pc, "opcode", opcode)
}
