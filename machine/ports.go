package machine

// Port addresses implemented per §4.5: a narrow native port group
// (0x10-0x15) plus a wider BIOS mirror (0xF0-0xFA) that exposes the
// same disk controls under different port numbers and, for 0xF8/0xF9,
// folds "start operation" and "read status" into a single IN. Every
// other port reads 0 and ignores writes (§4.5, §7).
const (
	portConsoleStatus = 0x00
	portConsoleData   = 0x01 // IN: console status (mirrors 0x00); OUT: console output

	portDiskSelect = 0x10
	portDiskTrack  = 0x11
	portDiskSector = 0x12
	portDMALow     = 0x13
	portDMAHigh    = 0x14
	portDiskOp     = 0x15 // OUT: 0=read, 1=write, 2=home; IN: last status

	portBiosConsoleStatus = 0xF0
	portBiosConsoleInput  = 0xF1
	portBiosConsoleOutput = 0xF2
	portBiosDiskSelect    = 0xF3
	portBiosDiskTrack     = 0xF4
	portBiosDiskSector    = 0xF5
	portBiosDMALow        = 0xF6
	portBiosDMAHigh       = 0xF7
	portBiosDiskRead      = 0xF8 // IN: execute read sector, return status
	portBiosDiskWrite     = 0xF9 // IN: execute write sector, return status
	portBiosDiskHome      = 0xFA

	diskOpRead  = 0
	diskOpWrite = 1
	diskOpHome  = 2
)

// portIn services an IN instruction (§4.5).
func (m *Machine) portIn(port byte) byte {
	switch port {
	case portConsoleStatus, portConsoleData, portBiosConsoleStatus:
		return m.Console.Status()
	case portBiosConsoleInput:
		if m.Console.hasInput() {
			return m.Console.readInput()
		}
		return 0
	case portDiskOp:
		return m.Disk.LastStatus()
	case portBiosDiskRead:
		_ = m.Disk.ReadSector(&m.Bus)
		return m.Disk.LastStatus()
	case portBiosDiskWrite:
		_ = m.Disk.WriteSector(&m.Bus)
		return m.Disk.LastStatus()
	default:
		return 0
	}
}

// portOut services an OUT instruction (§4.5).
func (m *Machine) portOut(port, value byte) {
	switch port {
	case portConsoleData, portBiosConsoleOutput:
		m.Console.putOutput(value)
	case portDiskSelect, portBiosDiskSelect:
		m.Disk.SelectDrive(int(value))
	case portDiskTrack, portBiosDiskTrack:
		m.Disk.SetTrack(value)
	case portDiskSector, portBiosDiskSector:
		m.Disk.SetSector(value)
	case portDMALow, portBiosDMALow:
		m.Disk.SetDMA(uint16(value) | m.Disk.DMA()&0xFF00)
	case portDMAHigh, portBiosDMAHigh:
		m.Disk.SetDMA(m.Disk.DMA()&0x00FF | uint16(value)<<8)
	case portDiskOp:
		switch value {
		case diskOpRead:
			_ = m.Disk.ReadSector(&m.Bus)
		case diskOpWrite:
			_ = m.Disk.WriteSector(&m.Bus)
		case diskOpHome:
			m.Disk.Home()
		}
	case portBiosDiskHome:
		m.Disk.Home()
	}
}
