/*
 * cpm80 BDOS test cases.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package machine

import "testing"

// writeFCB packs an unambiguous 8.3 name (space-padded) into a 36-byte
// FCB at addr: drive byte 0 (use current drive), name, ext, the rest
// zeroed.
func writeFCB(m *Machine, addr uint16, name, ext string) {
	var buf [36]byte
	copy(buf[1:9], padName(name, 8))
	copy(buf[9:12], padName(ext, 3))
	m.Bus.WriteBlock(addr, buf[:])
}

// bdosCall assembles and runs MVI C,fn ; LXI D,addr ; CALL 5 ; HLT,
// returning the resulting A register. It clears a HLT from the previous
// call directly rather than via Reset, which would also zero the bus
// and wipe out any FCB the caller set up there.
func bdosCall(m *Machine, fn byte, addr uint16) byte {
	m.halted = false
	load(m,
		0x0E, fn, // MVI C,fn
		0x11, byte(addr), byte(addr >> 8), // LXI D,addr
		0xCD, 0x05, 0x00, // CALL 5
		0x76, // HLT
	)
	m.Run(0)
	return m.Regs.A
}

// fcbAddr/wildcardFCBAddr sit below the default DMA buffer (0x0080),
// non-overlapping with each other, so a sequential I/O test writing
// through DMA never clobbers the FCB it is reading from.
const (
	wildcardFCBAddr uint16 = 0x0020
	fcbAddr         uint16 = 0x005C
)

func TestFileMakeSearchDelete(t *testing.T) {
	m := New()
	writeFCB(m, fcbAddr, "FOO", "TXT")
	writeFCB(m, wildcardFCBAddr, "????????", "???")

	if a := bdosCall(m, fnFileMake, fcbAddr); a != 0 {
		t.Fatalf("FILE MAKE returned A=%#02x, want 0", a)
	}

	names := m.Directory.List(driveA)
	if len(names) != 1 || names[0] != "FOO.TXT" {
		t.Fatalf("directory after MAKE = %v, want [FOO.TXT]", names)
	}

	if a := bdosCall(m, fnFileMake, fcbAddr); a != 0xFF {
		t.Fatalf("duplicate FILE MAKE returned A=%#02x, want 0xFF", a)
	}

	if a := bdosCall(m, fnSearchFirst, wildcardFCBAddr); a != 0 {
		t.Fatalf("SEARCH FIRST returned A=%#02x, want 0 (match found)", a)
	}

	if a := bdosCall(m, fnFileDelete, wildcardFCBAddr); a != 0 {
		t.Fatalf("FILE DELETE returned A=%#02x, want 0", a)
	}
	if names := m.Directory.List(driveA); len(names) != 0 {
		t.Fatalf("directory after DELETE = %v, want empty", names)
	}

	if a := bdosCall(m, fnSearchFirst, wildcardFCBAddr); a != 0xFF {
		t.Fatalf("SEARCH FIRST after DELETE returned A=%#02x, want 0xFF", a)
	}
}

func TestSequentialWriteReadRoundTrip(t *testing.T) {
	m := New()
	writeFCB(m, fcbAddr, "DATA", "BIN")
	if a := bdosCall(m, fnFileMake, fcbAddr); a != 0 {
		t.Fatalf("FILE MAKE returned A=%#02x, want 0", a)
	}

	dmaAddr := m.Disk.DMA()
	payload := []byte("0123456789ABCDEF")
	payload = append(payload, make([]byte, bytesPerSector-len(payload))...)
	m.Bus.WriteBlock(dmaAddr, payload)

	if a := bdosCall(m, fnSequentialWrite, fcbAddr); a != 0 {
		t.Fatalf("WRITE SEQUENTIAL returned A=%#02x, want 0", a)
	}

	// Clear the DMA buffer, then read the same record back.
	var zero [bytesPerSector]byte
	m.Bus.WriteBlock(dmaAddr, zero[:])

	// FILE OPEN finds the entry FILE MAKE created and resets the FCB's
	// current-record byte to 0, so the read below starts at record 0.
	if a := bdosCall(m, fnFileOpen, fcbAddr); a != 0 {
		t.Fatalf("FILE OPEN returned A=%#02x, want 0", a)
	}
	if a := bdosCall(m, fnSequentialRead, fcbAddr); a != 0 {
		t.Fatalf("READ SEQUENTIAL returned A=%#02x, want 0", a)
	}

	var got [bytesPerSector]byte
	m.Bus.ReadBlock(dmaAddr, got[:])
	if string(got[:16]) != "0123456789ABCDEF" {
		t.Fatalf("read back %q, want %q", got[:16], "0123456789ABCDEF")
	}
}

// BDOS fn 6 takes its selector in E, not via an FCB address, so these
// cases drive Regs.E directly with a minimal hand-assembled program
// instead of bdosCall's MVI C,fn / LXI D,addr shape.

func TestDirectConsolePollsStatusWithoutConsuming(t *testing.T) {
	m := New()
	m.Console.PutChar('Q')

	load(m,
		0x0E, fnDirectConsole, // MVI C,6
		0x1E, 0xFF, // MVI E,0xFF
		0xCD, 0x05, 0x00, // CALL 5
		0x76, // HLT
	)
	m.Run(0)
	if m.Regs.A != 0xFF {
		t.Fatalf("A=%#02x, want 0xFF (status: char ready)", m.Regs.A)
	}
	if !m.Console.hasInput() {
		t.Fatal("E=0xFF must not consume the pending byte")
	}
}

func TestDirectConsoleReadsWithoutEcho(t *testing.T) {
	m := New()
	m.Console.PutChar('Z')

	load(m,
		0x0E, fnDirectConsole, // MVI C,6
		0x1E, 0xFE, // MVI E,0xFE
		0xCD, 0x05, 0x00, // CALL 5
		0x76, // HLT
	)
	m.Run(0)
	if m.Regs.A != 'Z' {
		t.Fatalf("A=%#02x, want 'Z'", m.Regs.A)
	}
	if out := m.DrainOutput(); len(out) != 0 {
		t.Fatalf("E=0xFE must not echo, got output %q", out)
	}
}

func TestDirectConsoleOutputsOtherValues(t *testing.T) {
	m := New()
	load(m,
		0x0E, fnDirectConsole, // MVI C,6
		0x1E, 'Q', // MVI E,'Q'
		0xCD, 0x05, 0x00, // CALL 5
		0x76, // HLT
	)
	m.Run(0)
	if out := m.DrainOutput(); string(out) != "Q" {
		t.Fatalf("output = %q, want \"Q\"", out)
	}
}

func TestDiskRoundTripAcrossReset(t *testing.T) {
	m := New()
	writeFCB(m, fcbAddr, "KEEP", "ME")
	if a := bdosCall(m, fnFileMake, fcbAddr); a != 0 {
		t.Fatalf("FILE MAKE returned A=%#02x, want 0", a)
	}

	m.Reset()

	names := m.Directory.List(driveA)
	if len(names) != 1 || names[0] != "KEEP.ME" {
		t.Fatalf("directory after reset = %v, want [KEEP.ME]", names)
	}
}
