package machine

// BDOS function numbers implemented per §4.4. Functions not listed here
// return 0xFF in A, matching "unsupported function" rather than a
// fatal error.
const (
	fnSystemReset     = 0
	fnConsoleInput    = 1
	fnConsoleOutput   = 2
	fnDirectConsole   = 6
	fnPrintString     = 9
	fnReadConsoleBuf  = 10
	fnConsoleStatus   = 11
	fnDriveSet        = 14
	fnFileOpen        = 15
	fnFileClose       = 16
	fnSearchFirst     = 17
	fnSearchNext      = 18
	fnFileDelete      = 19
	fnSequentialRead  = 20
	fnSequentialWrite = 21
	fnFileMake        = 22
	fnFileRename      = 23
	fnCurrentDrive    = 25
	fnSetDMA          = 26
)

// Block allocation is the simple scheme §4.4/§4.7 specify: eight
// records per block, block N stored at data track N+1 (so block 1 is
// track 2, leaving tracks 0/1 for the directory). A directory entry's
// 16-byte allocation map holds one block number per 8-record group,
// zero meaning "not yet allocated".
const recordsPerBlock = 8

// bdosDispatch services the trapped CALL 0x0005 using the guest's C
// register to select a function and DE as its argument (§4.4). It
// returns true when the call must be replayed because a blocking
// console read found no input ready.
func (m *Machine) bdosDispatch() bool {
	switch m.Regs.C {
	case fnSystemReset:
		m.Disk.SelectDrive(driveA)
	case fnConsoleInput:
		return m.bdosConsoleInput()
	case fnConsoleOutput:
		m.Console.putOutput(m.Regs.E)
	case fnDirectConsole:
		return m.bdosDirectConsole()
	case fnPrintString:
		m.bdosPrintString()
	case fnReadConsoleBuf:
		return m.bdosReadConsoleBuf()
	case fnConsoleStatus:
		m.Regs.A = m.Console.Status()
	case fnDriveSet:
		if m.Disk.SelectDrive(int(m.Regs.E)) {
			m.Regs.A = 0
		} else {
			m.Regs.A = 0xFF
		}
	case fnFileOpen:
		m.bdosFileOpen()
	case fnFileClose:
		m.bdosFileClose()
	case fnSearchFirst:
		m.Directory.searchReset()
		m.bdosSearchNext()
	case fnSearchNext:
		m.bdosSearchNext()
	case fnFileDelete:
		m.bdosFileDelete()
	case fnSequentialRead:
		m.bdosSequentialRead()
	case fnSequentialWrite:
		m.bdosSequentialWrite()
	case fnFileMake:
		m.bdosFileMake()
	case fnFileRename:
		m.bdosFileRename()
	case fnCurrentDrive:
		m.Regs.A = byte(m.Disk.CurrentDrive())
	case fnSetDMA:
		m.Disk.SetDMA(m.Regs.DE())
	default:
		m.Regs.A = 0xFF
	}
	return false
}

// bdosConsoleInput implements fn 1: read one console character, echoing
// it when the console's echo flag is on, blocking (by replaying the
// CALL) until one is ready.
func (m *Machine) bdosConsoleInput() bool {
	if !m.Console.hasInput() {
		m.Console.waiting = true
		return true
	}
	ch := m.Console.readInput()
	m.Regs.A = ch
	if m.Console.echo {
		m.Console.putOutput(ch)
	}
	return false
}

// bdosDirectConsole implements fn 6 (§4.4): E=0xFF reports console
// status in A without consuming input; E=0xFE reads one input byte
// without echo (A=0 if none ready); any other E value writes E to the
// console.
func (m *Machine) bdosDirectConsole() bool {
	switch m.Regs.E {
	case 0xFF:
		m.Regs.A = m.Console.Status()
	case 0xFE:
		if m.Console.hasInput() {
			m.Regs.A = m.Console.readInput()
		} else {
			m.Regs.A = 0
		}
	default:
		m.Console.putOutput(m.Regs.E)
	}
	return false
}

// bdosReadConsoleBuf implements fn 10: buffered line input into the
// guest memory buffer pointed to by DE (byte 0 = max length, byte 1 =
// result length, bytes 2.. = characters), terminated by CR or LF. Blocks
// (replays) if no input is pending and the buffer isn't yet complete.
func (m *Machine) bdosReadConsoleBuf() bool {
	addr := m.Regs.DE()
	maxLen := m.Bus.Read(addr)
	count := m.Bus.Read(addr + 1)
	for count < maxLen {
		if !m.Console.hasInput() {
			// Keep the characters read so far; the replayed call resumes
			// from this count.
			m.Bus.Write(addr+1, count)
			m.Console.waiting = true
			return true
		}
		ch := m.Console.readInput()
		m.Console.putOutput(ch)
		if ch == '\r' || ch == '\n' {
			break
		}
		m.Bus.Write(addr+2+uint16(count), ch)
		count++
	}
	m.Bus.Write(addr+1, count)
	return false
}

// bdosPrintString implements fn 9: print the '$'-terminated string at
// DE.
func (m *Machine) bdosPrintString() {
	addr := m.Regs.DE()
	for {
		ch := m.Bus.Read(addr)
		if ch == '$' {
			break
		}
		m.Console.putOutput(ch)
		addr++
	}
}

// fcbAt reads the first 33 bytes of the in-guest FCB at addr (32
// directory-layout bytes plus the current-record byte at offset 32, §4.4).
func (m *Machine) fcbAt(addr uint16) (drive int, name [8]byte, ext [3]byte, extentLow byte, e dirEntry, current byte) {
	var buf [33]byte
	m.Bus.ReadBlock(addr, buf[:])
	drive = m.Disk.CurrentDrive()
	if buf[0] != 0 && buf[0] != '?' {
		drive = int(buf[0]) - 1
	}
	name, ext = fcbName(buf[:])
	extentLow = buf[12]
	e = parseDirEntry(buf[:32])
	current = buf[32]
	return
}

func (m *Machine) bdosFileOpen() {
	addr := m.Regs.DE()
	_, name, ext, extentLow, _, _ := m.fcbAt(addr)
	drive := m.Disk.CurrentDrive()
	_, e, ok := m.Directory.findOpen(drive, name, ext, extentLow)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	m.Bus.Write(addr+15, e.recordCount)
	m.Bus.Write(addr+32, 0)
	m.Regs.A = 0
}

func (m *Machine) bdosFileClose() {
	addr := m.Regs.DE()
	_, name, ext, extentLow, _, _ := m.fcbAt(addr)
	drive := m.Disk.CurrentDrive()
	idx, e, ok := m.Directory.findOpen(drive, name, ext, extentLow)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	e.recordCount = m.Bus.Read(addr + 15)
	m.Directory.writeEntry(drive, idx, e)
	m.Regs.A = 0
}

// bdosSearchNext shares SEARCH FIRST and SEARCH NEXT: advance the
// directory cursor and report the match via A (the entry's slot within
// its directory sector, 0-3, when found; 0xFF when exhausted), matching
// the BDOS convention that the matched entry lands in the DMA buffer at
// that slot's 32-byte offset.
func (m *Machine) bdosSearchNext() {
	addr := m.Regs.DE()
	_, name, ext, _, _, _ := m.fcbAt(addr)
	drive := m.Disk.CurrentDrive()
	idx, e, ok := m.Directory.searchNext(drive, name, ext)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	slot := byte(idx % entriesPerSector)
	raw := e.bytes()
	m.Bus.WriteBlock(m.Disk.DMA()+uint16(slot)*entrySize, raw[:])
	m.Regs.A = slot
}

func (m *Machine) bdosFileDelete() {
	addr := m.Regs.DE()
	_, name, ext, _, _, _ := m.fcbAt(addr)
	drive := m.Disk.CurrentDrive()
	if m.Directory.deleteMatching(drive, name, ext) > 0 {
		m.Regs.A = 0
	} else {
		m.Regs.A = 0xFF
	}
}

func (m *Machine) bdosFileMake() {
	addr := m.Regs.DE()
	_, name, ext, _, _, _ := m.fcbAt(addr)
	drive := m.Disk.CurrentDrive()
	if _, _, ok := m.Directory.findOpen(drive, name, ext, 0); ok {
		m.Regs.A = 0xFF
		return
	}
	idx, ok := m.Directory.findFree(drive)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	var e dirEntry
	e.user = 0
	e.name = name
	e.ext = ext
	m.Directory.writeEntry(drive, idx, e)
	m.Bus.Write(addr+15, 0)
	m.Bus.Write(addr+32, 0)
	m.Regs.A = 0
}

func (m *Machine) bdosFileRename() {
	addr := m.Regs.DE()
	var buf [32]byte
	m.Bus.ReadBlock(addr, buf[:])
	oldName, oldExt := fcbName(buf[:])
	newName, newExt := fcbName(buf[16:])
	drive := m.Disk.CurrentDrive()
	idx, e, ok := m.Directory.findOpen(drive, oldName, oldExt, buf[12])
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	e.name = newName
	e.ext = newExt
	m.Directory.writeEntry(drive, idx, e)
	m.Regs.A = 0
}

// bdosSequentialRead implements fn 20 exactly as §4.4 specifies: if
// CR >= RC, end of file; else look up the record's block in the FCB's
// allocation map and read track block+1, sector (CR mod 8)+1 (the
// disk's DMA/current-position registers are left untouched, matching
// §4.4's description of sequential I/O as independent of the
// interactive disk-select state).
func (m *Machine) bdosSequentialRead() {
	addr := m.Regs.DE()
	drive, name, ext, extentLow, _, current := m.fcbAt(addr)
	_, e, ok := m.Directory.findOpen(drive, name, ext, extentLow)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	if current >= e.recordCount {
		m.Regs.A = 1 // end of file
		return
	}
	block := e.allocation[current/recordsPerBlock]
	if block == 0 {
		m.Regs.A = 1 // record group never allocated
		return
	}
	track, sector := recordLocation(block, current)
	var buf [bytesPerSector]byte
	if err := m.Disk.readSectorAt(drive, track, sector, buf[:]); err != nil {
		m.Regs.A = 0xFF
		return
	}
	m.Bus.WriteBlock(m.Disk.DMA(), buf[:])
	m.Bus.Write(addr+32, current+1)
	m.Regs.A = 0
}

// bdosSequentialWrite implements fn 21 (§4.4): lazy-allocate the
// record's block if its group has none yet, write the sector, then
// extend RC if this write reaches past it.
func (m *Machine) bdosSequentialWrite() {
	addr := m.Regs.DE()
	drive, name, ext, extentLow, _, current := m.fcbAt(addr)
	idx, e, ok := m.Directory.findOpen(drive, name, ext, extentLow)
	if !ok {
		m.Regs.A = 0xFF
		return
	}
	group := current / recordsPerBlock
	if int(group) >= allocationSlots {
		m.Regs.A = 0xFF // file exceeds the allocation map's reach
		return
	}
	if e.allocation[group] == 0 {
		e.allocation[group] = group + 1
	}
	track, sector := recordLocation(e.allocation[group], current)
	buf := make([]byte, bytesPerSector)
	m.Bus.ReadBlock(m.Disk.DMA(), buf)
	if err := m.Disk.writeSectorAt(drive, track, sector, buf); err != nil {
		m.Regs.A = 0xFF
		return
	}
	if current >= e.recordCount {
		e.recordCount = current + 1
		// CLOSE persists whatever record count sits in the guest's FCB
		// memory, so keep that copy in sync with the one just written
		// to the directory entry.
		m.Bus.Write(addr+15, e.recordCount)
	}
	m.Directory.writeEntry(drive, idx, e)
	m.Bus.Write(addr+32, current+1)
	m.Regs.A = 0
}

// recordLocation maps a block number and logical record to an absolute
// track/sector: block N lives at track N+1 (§4.7), eight records per
// block, record (CR mod 8)+1 giving the sector within that track.
func recordLocation(block, record byte) (track, sector int) {
	track = int(block) + 1
	sector = int(record%recordsPerBlock) + 1
	return
}
