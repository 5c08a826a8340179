package machine

// Console ring buffer sizes, per §3 and the original cpm_support.h
// console_state (input_buffer[256], output_buffer[1024]).
const (
	inputRingSize  = 256
	outputBufSize  = 1024
)

// Console models the guest's terminal as two independent byte queues: an
// input ring the host fills via PutChar and BDOS drains a byte at a
// time, and an output buffer the guest fills and the host drains via
// GetChar. Read index == write index iff no input is pending.
type Console struct {
	input       [inputRingSize]byte
	inputRead   int
	inputWrite  int
	output      []byte
	waiting     bool
	echo        bool
}

// PutChar enqueues a host keystroke and clears the waiting flag.
func (c *Console) PutChar(ch byte) {
	c.input[c.inputWrite] = ch
	c.inputWrite = (c.inputWrite + 1) % inputRingSize
	c.waiting = false
}

// hasInput reports whether a byte is pending in the input ring.
func (c *Console) hasInput() bool {
	return c.inputRead != c.inputWrite
}

// readInput dequeues one byte. Callers must check hasInput first.
func (c *Console) readInput() byte {
	ch := c.input[c.inputRead]
	c.inputRead = (c.inputRead + 1) % inputRingSize
	return ch
}

// GetChar dequeues one output byte, or 0 if the output buffer is empty.
func (c *Console) GetChar() byte {
	if len(c.output) == 0 {
		return 0
	}
	ch := c.output[0]
	c.output = c.output[1:]
	return ch
}

// PendingOutput returns (and does not consume) every byte currently
// buffered for output, for a host that wants to drain in bulk.
func (c *Console) PendingOutput() []byte {
	out := make([]byte, len(c.output))
	copy(out, c.output)
	return out
}

// Drain returns every buffered output byte and empties the buffer, for
// a host relaying to a socket that must not see the same bytes twice.
func (c *Console) Drain() []byte {
	out := c.output
	c.output = nil
	return out
}

// putOutput appends one byte to the output buffer, compacting is
// unnecessary since it is backed by a slice rather than a fixed ring.
func (c *Console) putOutput(ch byte) {
	if len(c.output) >= outputBufSize {
		c.output = c.output[1:]
	}
	c.output = append(c.output, ch)
}

// Status returns 0xFF if a character is ready, else 0.
func (c *Console) Status() byte {
	if c.hasInput() {
		return 0xFF
	}
	return 0
}

// IsWaitingForInput reports whether a BDOS read found the ring empty.
func (c *Console) IsWaitingForInput() bool {
	return c.waiting
}

// ClearWaiting clears the waiting-for-input flag without supplying a
// character (e.g. a host giving up on an interactive read).
func (c *Console) ClearWaiting() {
	c.waiting = false
}

// SetEcho toggles whether BDOS fn 1 (Console Input) echoes the byte it
// reads to the output stream. Direct-console input (fn 6, E=0xFE) is
// never echoed.
func (c *Console) SetEcho(on bool) {
	c.echo = on
}

func (c *Console) reset() {
	*c = Console{}
}
