package machine

// Interrupt holds the single pending-RST latch described in §4.3. No
// nested interrupts are modelled; EI after RET is the guest's
// responsibility.
type Interrupt struct {
	enabled bool
	pending bool
	opcode  byte
}

// Trigger latches opcode (typically an RST nn) as pending.
func (i *Interrupt) Trigger(opcode byte) {
	i.pending = true
	i.opcode = opcode
}

// Pending reports whether an interrupt is both enabled and latched.
func (i *Interrupt) Pending() bool {
	return i.enabled && i.pending
}

// Enable sets or clears the master interrupt-enable flag (EI/DI).
func (i *Interrupt) Enable(on bool) {
	i.enabled = on
}

// Enabled reports the master interrupt-enable flag.
func (i *Interrupt) Enabled() bool {
	return i.enabled
}

// take clears enable and pending and returns the latched opcode, for the
// caller to execute exactly once as if freshly fetched.
func (i *Interrupt) take() byte {
	i.enabled = false
	i.pending = false
	return i.opcode
}

func (i *Interrupt) reset() {
	*i = Interrupt{}
}
