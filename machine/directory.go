package machine

// Directory layout constants (§3, §4.7): 64 entries of 32 bytes each,
// packed four per 128-byte sector.
const (
	entriesPerDisk  = 64
	entrySize       = 32
	entriesPerSector = bytesPerSector / entrySize

	// deletedUser marks a directory entry (or FCB) as deleted/free.
	deletedUser byte = 0xE5

	// Two candidate directory bases tried at init (§4.7): track 0
	// sector 1, or track 2 sector 1 (matching the sample-file
	// bootstrap's data-from-track-2 layout).
	dirBaseTrack0 = 0
	dirBaseTrack2 = 2 * sectorsPerTrack * bytesPerSector

	allocationSlots = 16
)

// dirEntry is the 32-byte on-disk directory entry / in-guest FCB
// layout shared by directory records and FCBs (§3).
type dirEntry struct {
	user        byte
	name        [8]byte
	ext         [3]byte
	extentLow   byte
	reserved    [2]byte
	recordCount byte
	allocation  [allocationSlots]byte
}

func parseDirEntry(buf []byte) dirEntry {
	var e dirEntry
	e.user = buf[0]
	copy(e.name[:], buf[1:9])
	copy(e.ext[:], buf[9:12])
	e.extentLow = buf[12]
	copy(e.reserved[:], buf[13:15])
	e.recordCount = buf[15]
	copy(e.allocation[:], buf[16:32])
	return e
}

func (e dirEntry) bytes() [entrySize]byte {
	var buf [entrySize]byte
	buf[0] = e.user
	copy(buf[1:9], e.name[:])
	copy(buf[9:12], e.ext[:])
	buf[12] = e.extentLow
	copy(buf[13:15], e.reserved[:])
	buf[15] = e.recordCount
	copy(buf[16:32], e.allocation[:])
	return buf
}

// isFree reports whether this slot is available for MAKE: deleted, or
// every name byte is blank/NUL (§4.7).
func (e dirEntry) isFree() bool {
	if e.user == deletedUser {
		return true
	}
	for _, b := range e.name {
		if b != ' ' && b != 0 {
			return false
		}
	}
	for _, b := range e.ext {
		if b != ' ' && b != 0 {
			return false
		}
	}
	return true
}

// looksValid reports whether this entry passes the §4.7 detection
// scoring check.
func (e dirEntry) looksValid() bool {
	if e.user > 0x1F && e.user != deletedUser {
		return false
	}
	blank := true
	for _, b := range append(append([]byte{}, e.name[:]...), e.ext[:]...) {
		if !isNameByte(b) {
			return false
		}
		if b != ' ' && b != 0 {
			blank = false
		}
	}
	return !blank
}

func isNameByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == ' ' || b == 0:
		return true
	default:
		return false
	}
}

// fcbName extracts an 8.3 name from an FCB/directory-layout byte slice
// (bytes 1..11, i.e. after the user/drive byte), upper-cased.
func fcbName(buf []byte) (name [8]byte, ext [3]byte) {
	for i := 0; i < 8; i++ {
		name[i] = toUpperASCII(buf[1+i])
	}
	for i := 0; i < 3; i++ {
		ext[i] = toUpperASCII(buf[9+i])
	}
	return name, ext
}

func toUpperASCII(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// matchPattern reports whether a live directory entry's name/ext match a
// wildcard FCB pattern: '?' matches any byte, everything else must be
// byte-identical after upper-casing (§4.4 "Filename matching").
func matchPattern(entryName [8]byte, entryExt [3]byte, patName [8]byte, patExt [3]byte) bool {
	for i := range entryName {
		if patName[i] != '?' && patName[i] != entryName[i] {
			return false
		}
	}
	for i := range entryExt {
		if patExt[i] != '?' && patExt[i] != entryExt[i] {
			return false
		}
	}
	return true
}

// Directory implements the BDOS-reachable file catalogue: 64 fixed
// entries per drive, a wildcard search cursor, and §4.7's base-offset
// auto-detection. It holds no state of its own beyond the cursor — the
// entries live in the Disk's sector images.
type Directory struct {
	disk   *Disk
	cursor int
}

func newDirectory(disk *Disk) *Directory {
	return &Directory{disk: disk}
}

// entryLocation returns the track/sector/offset-within-sector for entry
// index i on drive, given the drive's detected base.
func entryLocation(base, index int) (track, sector, secOffset int) {
	abs := base + index*entrySize
	track = abs / (sectorsPerTrack * bytesPerSector)
	rem := abs % (sectorsPerTrack * bytesPerSector)
	sector = rem/bytesPerSector + 1
	secOffset = rem % bytesPerSector
	return
}

// readEntry loads directory entry index from drive.
func (dir *Directory) readEntry(drive, index int) dirEntry {
	track, sector, secOffset := entryLocation(dir.disk.dirBase[drive], index)
	var buf [bytesPerSector]byte
	_ = dir.disk.readSectorAt(drive, track, sector, buf[:])
	return parseDirEntry(buf[secOffset : secOffset+entrySize])
}

// writeEntry stores entry at index on drive via read-modify-write of its
// containing sector.
func (dir *Directory) writeEntry(drive, index int, e dirEntry) {
	track, sector, secOffset := entryLocation(dir.disk.dirBase[drive], index)
	var buf [bytesPerSector]byte
	_ = dir.disk.readSectorAt(drive, track, sector, buf[:])
	raw := e.bytes()
	copy(buf[secOffset:secOffset+entrySize], raw[:])
	_ = dir.disk.writeSectorAt(drive, track, sector, buf[:])
}

// findFree returns the lowest free slot index on drive.
func (dir *Directory) findFree(drive int) (int, bool) {
	for i := 0; i < entriesPerDisk; i++ {
		if dir.readEntry(drive, i).isFree() {
			return i, true
		}
	}
	return 0, false
}

// findOpen returns the single live entry matching name/ext at
// extentLow, used by OPEN/CLOSE which require an exact extent match.
func (dir *Directory) findOpen(drive int, name [8]byte, ext [3]byte, extentLow byte) (int, dirEntry, bool) {
	for i := 0; i < entriesPerDisk; i++ {
		e := dir.readEntry(drive, i)
		if e.user == deletedUser || e.user > 0x1F {
			continue
		}
		if e.extentLow != extentLow {
			continue
		}
		if matchPattern(e.name, e.ext, name, ext) {
			return i, e, true
		}
	}
	return 0, dirEntry{}, false
}

// searchReset rewinds the search cursor (SEARCH FIRST, §4.4).
func (dir *Directory) searchReset() {
	dir.cursor = 0
}

// searchNext scans forward from the cursor for a live entry matching the
// wildcard pattern, advancing the cursor past the hit. Used by both
// SEARCH FIRST (after searchReset) and SEARCH NEXT.
func (dir *Directory) searchNext(drive int, name [8]byte, ext [3]byte) (int, dirEntry, bool) {
	for dir.cursor < entriesPerDisk {
		i := dir.cursor
		dir.cursor++
		e := dir.readEntry(drive, i)
		if e.user == deletedUser || e.user > 0x1F {
			continue
		}
		if matchPattern(e.name, e.ext, name, ext) {
			return i, e, true
		}
	}
	return 0, dirEntry{}, false
}

// deleteMatching marks every live entry matching name/ext as deleted,
// returning the count removed (§4.4 fn 19).
func (dir *Directory) deleteMatching(drive int, name [8]byte, ext [3]byte) int {
	count := 0
	for i := 0; i < entriesPerDisk; i++ {
		e := dir.readEntry(drive, i)
		if e.user == deletedUser || e.user > 0x1F {
			continue
		}
		if matchPattern(e.name, e.ext, name, ext) {
			e.user = deletedUser
			dir.writeEntry(drive, i, e)
			count++
		}
	}
	return count
}

// List returns every live file name on drive as "NAME.EXT" strings, for
// the reference command loop's "dir" verb. Duplicate extents of the
// same file (large files spanning more than one directory entry) are
// not modelled, so each live entry names a distinct file.
func (dir *Directory) List(drive int) []string {
	var names []string
	for i := 0; i < entriesPerDisk; i++ {
		e := dir.readEntry(drive, i)
		if e.user == deletedUser || e.user > 0x1F {
			continue
		}
		names = append(names, formatName(e.name, e.ext))
	}
	return names
}

// formatName renders an 8.3 name/ext pair as "NAME.EXT", trimming
// trailing blanks and omitting the dot when ext is empty.
func formatName(name [8]byte, ext [3]byte) string {
	n := trimBlank(name[:])
	e := trimBlank(ext[:])
	if e == "" {
		return n
	}
	return n + "." + e
}

func trimBlank(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// detectBase implements §4.7's scoring: for each candidate base, count
// entries that "look valid"; the higher score wins, ties favour 0.
func (dir *Directory) detectBase(drive int) int {
	score := func(base int) int {
		saved := dir.disk.dirBase[drive]
		dir.disk.dirBase[drive] = base
		defer func() { dir.disk.dirBase[drive] = saved }()
		n := 0
		for i := 0; i < entriesPerDisk; i++ {
			if dir.readEntry(drive, i).looksValid() {
				n++
			}
		}
		return n
	}
	scoreZero := score(dirBaseTrack0)
	scoreTwo := score(dirBaseTrack2)
	if scoreTwo > scoreZero {
		return dirBaseTrack2
	}
	return dirBaseTrack0
}
