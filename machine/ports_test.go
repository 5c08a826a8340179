package machine

import "testing"

func TestPortDMAAddressAssembledFromTwoBytes(t *testing.T) {
	m := New()
	m.portOut(portDMALow, 0x34)
	m.portOut(portDMAHigh, 0x12)
	if m.Disk.DMA() != 0x1234 {
		t.Fatalf("DMA = %#04x, want 0x1234", m.Disk.DMA())
	}
}

func TestPortDiskSelectTrackSectorWriteReadRoundTrip(t *testing.T) {
	m := New()
	m.portOut(portDiskSelect, driveB)
	m.portOut(portDiskTrack, 5)
	m.portOut(portDiskSector, 3)
	m.portOut(portDMALow, 0x00)
	m.portOut(portDMAHigh, 0x02) // DMA = 0x0200

	pattern := make([]byte, bytesPerSector)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	m.Bus.WriteBlock(0x0200, pattern)

	m.portOut(portDiskOp, diskOpWrite)
	if status := m.portIn(portDiskOp); status != 0 {
		t.Fatalf("disk status after write = %#02x, want 0", status)
	}

	var cleared [bytesPerSector]byte
	m.Bus.WriteBlock(0x0200, cleared[:])

	m.portOut(portDiskOp, diskOpRead)
	var got [bytesPerSector]byte
	m.Bus.ReadBlock(0x0200, got[:])
	for i := range got {
		if got[i] != byte(i) {
			t.Fatalf("byte %d = %#02x, want %#02x", i, got[i], byte(i))
		}
	}
}

func TestPortDiskHomeResetsTrack(t *testing.T) {
	m := New()
	m.portOut(portDiskTrack, 40)
	m.portOut(portDiskOp, diskOpHome)
	if m.Disk.track != 0 {
		t.Fatalf("track = %d after home, want 0", m.Disk.track)
	}
}

func TestBiosDiskHomeResetsTrack(t *testing.T) {
	m := New()
	m.portOut(portBiosDiskTrack, 40)
	m.portOut(portBiosDiskHome, 0)
	if m.Disk.track != 0 {
		t.Fatalf("track = %d after BIOS home, want 0", m.Disk.track)
	}
}

func TestPortConsoleStatusAndData(t *testing.T) {
	m := New()
	if status := m.portIn(portConsoleStatus); status != 0 {
		t.Fatalf("console status with no input = %#02x, want 0", status)
	}
	m.PutChar('Z')
	if status := m.portIn(portConsoleStatus); status != 0xFF {
		t.Fatalf("console status with pending input = %#02x, want 0xFF", status)
	}
	if status := m.portIn(portBiosConsoleInput); status != 'Z' {
		t.Fatalf("bios console input = %q, want 'Z'", status)
	}

	m.portOut(portConsoleData, 'Y')
	if out := m.DrainOutput(); string(out) != "Y" {
		t.Fatalf("drained output = %q, want \"Y\"", out)
	}
}

func TestBiosDiskReadWriteExecuteAndReturnStatus(t *testing.T) {
	m := New()
	m.portOut(portBiosDiskSelect, driveA)
	m.portOut(portBiosDiskTrack, 5)
	m.portOut(portBiosDiskSector, 3)
	m.portOut(portBiosDMALow, 0x00)
	m.portOut(portBiosDMAHigh, 0x02) // DMA = 0x0200

	pattern := make([]byte, bytesPerSector)
	for i := range pattern {
		pattern[i] = 0xAA
	}
	m.Bus.WriteBlock(0x0200, pattern)

	if status := m.portIn(portBiosDiskWrite); status != 0 {
		t.Fatalf("bios write status = %#02x, want 0", status)
	}

	var cleared [bytesPerSector]byte
	m.Bus.WriteBlock(0x0200, cleared[:])

	if status := m.portIn(portBiosDiskRead); status != 0 {
		t.Fatalf("bios read status = %#02x, want 0", status)
	}
	var got [bytesPerSector]byte
	m.Bus.ReadBlock(0x0200, got[:])
	for i := range got {
		if got[i] != 0xAA {
			t.Fatalf("byte %d = %#02x, want 0xAA", i, got[i])
		}
	}
}

func TestUnmappedPortReadsZero(t *testing.T) {
	m := New()
	if v := m.portIn(0x42); v != 0 {
		t.Fatalf("unmapped port read %#02x, want 0", v)
	}
}
