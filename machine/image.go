package machine

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// imageFileNames are the two host files backing drives A and B (§4.8).
var imageFileNames = [numDrives]string{"A.DSK", "B.DSK"}

// LoadImages opens (or creates) A.DSK and B.DSK under dir, loading any
// existing contents into the corresponding drive and wiring a persist
// hook so future sector writes are flushed back immediately. When no
// image exists yet and bootstrap is true, drive A is seeded with the
// sample files (§4.8, §4.10) before being written out for the first
// time; with bootstrap false the images are simply created empty.
func (m *Machine) LoadImages(dir string, bootstrap bool) error {
	anyExisted := false
	for drive := 0; drive < numDrives; drive++ {
		path := filepath.Join(dir, imageFileNames[drive])
		existed, err := loadImageFile(path, m.Disk.images[drive][:])
		if err != nil {
			return err
		}
		anyExisted = anyExisted || existed
	}
	if !anyExisted && bootstrap {
		bootstrapDrive(m, driveA)
	}
	for drive := 0; drive < numDrives; drive++ {
		m.Disk.dirBase[drive] = m.Directory.detectBase(drive)
	}
	if !anyExisted {
		for drive := 0; drive < numDrives; drive++ {
			path := filepath.Join(dir, imageFileNames[drive])
			if err := writeImageFile(path, m.Disk.images[drive][:]); err != nil {
				return err
			}
		}
	}
	m.SetPersistHook(func(drive int) {
		path := filepath.Join(dir, imageFileNames[drive])
		if err := writeImageFile(path, m.Disk.images[drive][:]); err != nil {
			slog.Error("persisting disk image", "path", path, "error", err)
		}
	})
	return nil
}

// loadImageFile reads an existing disk image into buf, reporting
// whether the file existed. A file shorter than a full image has its
// tail filled with 0xE5 (unformatted); no file at all leaves buf untouched and
// returns existed=false.
func loadImageFile(path string, buf []byte) (existed bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	for i := n; i < len(buf); i++ {
		buf[i] = unformattedFill
	}
	return true, nil
}

func writeImageFile(path string, buf []byte) error {
	return os.WriteFile(path, buf, 0o644)
}

// sampleFile is one bootstrap entry: an 8.3 name split on its dot and
// the bytes to store.
type sampleFile struct {
	name string
	ext  string
	data []byte
}

// bootstrapDrive populates a freshly-created drive with all five sample
// files named in §4.8: three text files plus HELLO.COM and PLOP.COM,
// all seeded onto drive A.
func bootstrapDrive(m *Machine, drive int) {
	files := []sampleFile{
		{"WELCOME", "TXT", []byte(welcomeText)},
		{"HELP", "TXT", []byte(helpText)},
		{"README", "TXT", []byte(readmeText)},
		{"HELLO", "COM", helloCOM},
		{"PLOP", "COM", plopCOM},
	}
	for _, sf := range files {
		writeSampleFile(m, drive, sf)
	}
}

// writeSampleFile creates a directory entry and lays the file's bytes
// directly into its allocated blocks, bypassing BDOS (there is no
// running guest yet to call it), using the same allocation-map
// addressing BDOS sequential write would (machine/bdos.go).
func writeSampleFile(m *Machine, drive int, sf sampleFile) {
	idx, ok := m.Directory.findFree(drive)
	if !ok {
		return
	}
	var e dirEntry
	copy(e.name[:], padName(sf.name, 8))
	copy(e.ext[:], padName(sf.ext, 3))
	records := (len(sf.data) + bytesPerSector - 1) / bytesPerSector
	if records > allocationSlots*recordsPerBlock {
		records = allocationSlots * recordsPerBlock
	}
	e.recordCount = byte(records)

	for rec := 0; rec < records; rec++ {
		record := byte(rec)
		group := record / recordsPerBlock
		if e.allocation[group] == 0 {
			e.allocation[group] = group + 1
		}
		var buf [bytesPerSector]byte
		fillBytes(buf[:], 0x1A) // CP/M end-of-file pad
		start := rec * bytesPerSector
		end := start + bytesPerSector
		if end > len(sf.data) {
			end = len(sf.data)
		}
		copy(buf[:], sf.data[start:end])
		track, sector := recordLocation(e.allocation[group], record)
		_ = m.Disk.writeSectorAt(drive, track, sector, buf[:])
	}
	m.Directory.writeEntry(drive, idx, e)
}

func padName(s string, width int) []byte {
	buf := make([]byte, width)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, s)
	return buf
}
