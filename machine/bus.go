package machine

// busSize is the full 64 KiB address space of the 8080.
const busSize = 0x10000

// Bus is the flat, byte-addressable memory the CPU and the BDOS/disk
// layers read and write through. All access goes through Read/Write so
// out-of-range addresses clamp silently (§3, §7) and the last touched
// address is always observable.
type Bus struct {
	mem         [busSize]byte
	addressBus  uint16 // last address touched by Read or Write
}

// Read returns the byte at addr, or 0 if addr is out of range (never
// happens for a uint16, kept for symmetry with Write).
func (b *Bus) Read(addr uint16) byte {
	b.addressBus = addr
	return b.mem[addr]
}

// Write stores value at addr and updates the address-bus witness.
func (b *Bus) Write(addr uint16, value byte) {
	b.addressBus = addr
	b.mem[addr] = value
}

// ReadWord reads a little-endian 16-bit value at addr, addr+1.
func (b *Bus) ReadWord(addr uint16) uint16 {
	low := b.Read(addr)
	high := b.Read(addr + 1)
	return pair(high, low)
}

// WriteWord stores a little-endian 16-bit value at addr, addr+1.
func (b *Bus) WriteWord(addr uint16, value uint16) {
	b.Write(addr, lo(value))
	b.Write(addr+1, hi(value))
}

// ReadBlock copies n bytes starting at addr into dst.
func (b *Bus) ReadBlock(addr uint16, dst []byte) {
	for i := range dst {
		dst[i] = b.Read(addr + uint16(i))
	}
}

// WriteBlock copies src into the bus starting at addr.
func (b *Bus) WriteBlock(addr uint16, src []byte) {
	for i, v := range src {
		b.Write(addr+uint16(i), v)
	}
}

// AddressBus returns the last address touched by Read or Write.
func (b *Bus) AddressBus() uint16 {
	return b.addressBus
}

// reset zeroes memory and the address-bus witness.
func (b *Bus) reset() {
	b.mem = [busSize]byte{}
	b.addressBus = 0
}
