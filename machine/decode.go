package machine

// opHandler executes one instruction whose opcode byte was fetched from
// pc, and returns the PC the next Step should resume at. Most handlers
// return pc+instructionLength; branches return the jump target; HLT and
// the BDOS-trap-without-input case return pc itself.
type opHandler func(m *Machine, pc uint16) uint16

// opcodeTable is the 256-entry opcode dispatch table described in §4.1.
// It is built once at init from the 8080's regular bit-field encodings
// (MOV, MVI, register-pair ops, the eight ALU groups, RST) plus
// individually assigned handlers for control flow, I/O and the
// irregular single-byte opcodes.
var opcodeTable [256]opHandler

// bdosEntry is the CALL target the decoder intercepts instead of
// pushing a return address (§4.4).
const bdosEntry uint16 = 0x0005

func init() {
	for op := range opcodeTable {
		opcodeTable[op] = illegalOpcode
	}

	// NOP and its seven undocumented aliases (§4.1).
	for _, op := range []int{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		opcodeTable[op] = nopHandler
	}

	// MOV r,r' : 0x40-0x7F, dst = bits 5-3, src = bits 2-0. 0x76 is HLT.
	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		dst := regCode((op >> 3) & 0x07)
		src := regCode(op & 0x07)
		opcodeTable[op] = movHandler(dst, src)
	}
	opcodeTable[0x76] = hltHandler

	// MVI r,d8 : pattern 00ddd110.
	for _, dst := range []regCode{regB, regC, regD, regE, regH, regL, regM, regA} {
		op := 0x06 | int(dst)<<3
		opcodeTable[op] = mviHandler(dst)
	}

	// INR r / DCR r : 00ddd100 / 00ddd101.
	for _, dst := range []regCode{regB, regC, regD, regE, regH, regL, regM, regA} {
		opI := 0x04 | int(dst)<<3
		opD := 0x05 | int(dst)<<3
		opcodeTable[opI] = inrHandler(dst)
		opcodeTable[opD] = dcrHandler(dst)
	}

	// Register-pair ops: LXI, INX, DCX, DAD, PUSH, POP, STAX/LDAX (BC/DE
	// only), each keyed on the rp field in bits 5-4.
	for _, rp := range []rpCode{rpBC, rpDE, rpHL, rpSP} {
		base := int(rp) << 4
		opcodeTable[0x01|base] = lxiHandler(rp)
		opcodeTable[0x03|base] = inxHandler(rp)
		opcodeTable[0x0B|base] = dcxHandler(rp)
		opcodeTable[0x09|base] = dadHandler(rp)
	}
	opcodeTable[0x02] = staxHandler(rpBC)
	opcodeTable[0x0A] = ldaxHandler(rpBC)
	opcodeTable[0x12] = staxHandler(rpDE)
	opcodeTable[0x1A] = ldaxHandler(rpDE)

	for _, rp := range []rpCode{rpBC, rpDE, rpHL, rpPSW} {
		base := int(rp) << 4
		opcodeTable[0xC1|base] = popHandler(rp)
		opcodeTable[0xC5|base] = pushHandler(rp)
	}

	// Rotates, DAA, CMA, STC, CMC.
	opcodeTable[0x07] = rlcHandler
	opcodeTable[0x0F] = rrcHandler
	opcodeTable[0x17] = ralHandler
	opcodeTable[0x1F] = rarHandler
	opcodeTable[0x27] = daaHandler
	opcodeTable[0x2F] = cmaHandler
	opcodeTable[0x37] = stcHandler
	opcodeTable[0x3F] = cmcHandler

	// Direct-addressed load/store.
	opcodeTable[0x22] = shldHandler
	opcodeTable[0x2A] = lhldHandler
	opcodeTable[0x32] = staHandler
	opcodeTable[0x3A] = ldaHandler

	// ALU groups: ADD/ADC/SUB/SBB/ANA/XRA/ORA/CMP over r, and their
	// immediate forms.
	aluOps := []struct {
		base    int
		handler func(regCode) opHandler
		imm     int
		immOp   opHandler
	}{
		{0x80, addHandler, 0xC6, adiHandler},
		{0x88, adcHandler, 0xCE, aciHandler},
		{0x90, subHandler, 0xD6, suiHandler},
		{0x98, sbbHandler, 0xDE, sbiHandler},
		{0xA0, anaHandler, 0xE6, aniHandler},
		{0xA8, xraHandler, 0xEE, xriHandler},
		{0xB0, oraHandler, 0xF6, oriHandler},
		{0xB8, cmpHandler, 0xFE, cpiHandler},
	}
	for _, group := range aluOps {
		for _, src := range []regCode{regB, regC, regD, regE, regH, regL, regM, regA} {
			opcodeTable[group.base+int(src)] = group.handler(src)
		}
		opcodeTable[group.imm] = group.immOp
	}

	// Control flow: RET/Jcc/Ccc/RST, keyed on condition field bits 5-3
	// for the 0xC0-0xFF block (minus the slots already claimed above).
	conds := []struct {
		cond condition
		ret  int
		jmp  int
		call int
	}{
		{condNZ, 0xC0, 0xC2, 0xC4},
		{condZ, 0xC8, 0xCA, 0xCC},
		{condNC, 0xD0, 0xD2, 0xD4},
		{condC, 0xD8, 0xDA, 0xDC},
		{condPO, 0xE0, 0xE2, 0xE4},
		{condPE, 0xE8, 0xEA, 0xEC},
		{condP, 0xF0, 0xF2, 0xF4},
		{condM, 0xF8, 0xFA, 0xFC},
	}
	for _, c := range conds {
		opcodeTable[c.ret] = rcondHandler(c.cond)
		opcodeTable[c.jmp] = jcondHandler(c.cond)
		opcodeTable[c.call] = ccondHandler(c.cond)
	}
	for n := 0; n < 8; n++ {
		opcodeTable[0xC7+8*n] = rstHandler(byte(n))
	}

	opcodeTable[0xC3] = jmpHandler
	opcodeTable[0xCB] = jmpHandler // undocumented alias
	opcodeTable[0xC9] = retHandler
	opcodeTable[0xD9] = retHandler // undocumented alias
	opcodeTable[0xCD] = callHandler
	opcodeTable[0xDD] = callHandler // undocumented alias
	opcodeTable[0xED] = callHandler // undocumented alias
	opcodeTable[0xFD] = callHandler // undocumented alias

	opcodeTable[0xE3] = xthlHandler
	opcodeTable[0xEB] = xchgHandler
	opcodeTable[0xE9] = pchlHandler
	opcodeTable[0xF9] = sphlHandler

	opcodeTable[0xD3] = outHandler
	opcodeTable[0xDB] = inHandler
	opcodeTable[0xF3] = diHandler
	opcodeTable[0xFB] = eiHandler
}

// regCode identifies an 8-bit operand field (MOV/MVI/INR/DCR/ALU src).
type regCode int

const (
	regB regCode = iota
	regC
	regD
	regE
	regH
	regL
	regM // (HL)
	regA
)

// rpCode identifies a 16-bit register-pair field.
type rpCode int

const (
	rpBC rpCode = iota
	rpDE
	rpHL
	rpSP  // LXI/INX/DCX/DAD
	rpPSW = rpSP // PUSH/POP reuse the same 2-bit field as SP
)

type condition int

const (
	condNZ condition = iota
	condZ
	condNC
	condC
	condPO
	condPE
	condP
	condM
)

func (m *Machine) readReg(code regCode) byte {
	switch code {
	case regB:
		return m.Regs.B
	case regC:
		return m.Regs.C
	case regD:
		return m.Regs.D
	case regE:
		return m.Regs.E
	case regH:
		return m.Regs.H
	case regL:
		return m.Regs.L
	case regM:
		return m.Bus.Read(m.Regs.HL())
	default:
		return m.Regs.A
	}
}

func (m *Machine) writeReg(code regCode, v byte) {
	switch code {
	case regB:
		m.Regs.B = v
	case regC:
		m.Regs.C = v
	case regD:
		m.Regs.D = v
	case regE:
		m.Regs.E = v
	case regH:
		m.Regs.H = v
	case regL:
		m.Regs.L = v
	case regM:
		m.Bus.Write(m.Regs.HL(), v)
	default:
		m.Regs.A = v
	}
}

func (m *Machine) readPair(rp rpCode) uint16 {
	switch rp {
	case rpBC:
		return m.Regs.BC()
	case rpDE:
		return m.Regs.DE()
	case rpHL:
		return m.Regs.HL()
	default:
		return m.Regs.SP
	}
}

func (m *Machine) writePair(rp rpCode, v uint16) {
	switch rp {
	case rpBC:
		m.Regs.SetBC(v)
	case rpDE:
		m.Regs.SetDE(v)
	case rpHL:
		m.Regs.SetHL(v)
	default:
		m.Regs.SP = v
	}
}

func (m *Machine) testCondition(c condition) bool {
	switch c {
	case condNZ:
		return !m.Flags.Z
	case condZ:
		return m.Flags.Z
	case condNC:
		return !m.Flags.C
	case condC:
		return m.Flags.C
	case condPO:
		return !m.Flags.P
	case condPE:
		return m.Flags.P
	case condP:
		return !m.Flags.S
	default: // condM
		return m.Flags.S
	}
}

func (m *Machine) push16(v uint16) {
	m.Regs.SP -= 2
	m.Bus.WriteWord(m.Regs.SP, v)
}

func (m *Machine) pop16() uint16 {
	v := m.Bus.ReadWord(m.Regs.SP)
	m.Regs.SP += 2
	return v
}

// --- data move ---

func movHandler(dst, src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writeReg(dst, m.readReg(src))
		return pc + 1
	}
}

func mviHandler(dst regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writeReg(dst, m.Bus.Read(pc+1))
		return pc + 2
	}
}

func lxiHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writePair(rp, m.Bus.ReadWord(pc+1))
		return pc + 3
	}
}

func staHandler(m *Machine, pc uint16) uint16 {
	m.Bus.Write(m.Bus.ReadWord(pc+1), m.Regs.A)
	return pc + 3
}

func ldaHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = m.Bus.Read(m.Bus.ReadWord(pc + 1))
	return pc + 3
}

func shldHandler(m *Machine, pc uint16) uint16 {
	addr := m.Bus.ReadWord(pc + 1)
	m.Bus.Write(addr, m.Regs.L)
	m.Bus.Write(addr+1, m.Regs.H)
	return pc + 3
}

func lhldHandler(m *Machine, pc uint16) uint16 {
	addr := m.Bus.ReadWord(pc + 1)
	m.Regs.L = m.Bus.Read(addr)
	m.Regs.H = m.Bus.Read(addr + 1)
	return pc + 3
}

func staxHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Bus.Write(m.readPair(rp), m.Regs.A)
		return pc + 1
	}
}

func ldaxHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = m.Bus.Read(m.readPair(rp))
		return pc + 1
	}
}

func xchgHandler(m *Machine, pc uint16) uint16 {
	h, l := m.Regs.H, m.Regs.L
	m.Regs.H, m.Regs.L = m.Regs.D, m.Regs.E
	m.Regs.D, m.Regs.E = h, l
	return pc + 1
}

func xthlHandler(m *Machine, pc uint16) uint16 {
	lo := m.Bus.Read(m.Regs.SP)
	hi := m.Bus.Read(m.Regs.SP + 1)
	m.Bus.Write(m.Regs.SP, m.Regs.L)
	m.Bus.Write(m.Regs.SP+1, m.Regs.H)
	m.Regs.L, m.Regs.H = lo, hi
	return pc + 1
}

func sphlHandler(m *Machine, pc uint16) uint16 {
	m.Regs.SP = m.Regs.HL()
	return pc + 1
}

func pchlHandler(m *Machine, pc uint16) uint16 {
	return m.Regs.HL()
}

// --- arithmetic / logic ---

func addHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = addByte(&m.Flags, m.Regs.A, m.readReg(src), false)
		return pc + 1
	}
}

func adcHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = addByte(&m.Flags, m.Regs.A, m.readReg(src), true)
		return pc + 1
	}
}

func subHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = subByte(&m.Flags, m.Regs.A, m.readReg(src), false)
		return pc + 1
	}
}

func sbbHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = subByte(&m.Flags, m.Regs.A, m.readReg(src), true)
		return pc + 1
	}
}

func anaHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = andByte(&m.Flags, m.Regs.A, m.readReg(src))
		return pc + 1
	}
}

func xraHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = xorByte(&m.Flags, m.Regs.A, m.readReg(src))
		return pc + 1
	}
}

func oraHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.Regs.A = orByte(&m.Flags, m.Regs.A, m.readReg(src))
		return pc + 1
	}
}

func cmpHandler(src regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		cmpByte(&m.Flags, m.Regs.A, m.readReg(src))
		return pc + 1
	}
}

func adiHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = addByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1), false)
	return pc + 2
}

func aciHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = addByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1), true)
	return pc + 2
}

func suiHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = subByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1), false)
	return pc + 2
}

func sbiHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = subByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1), true)
	return pc + 2
}

func aniHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = andByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1))
	return pc + 2
}

func xriHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = xorByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1))
	return pc + 2
}

func oriHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = orByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1))
	return pc + 2
}

func cpiHandler(m *Machine, pc uint16) uint16 {
	cmpByte(&m.Flags, m.Regs.A, m.Bus.Read(pc+1))
	return pc + 2
}

func inrHandler(dst regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writeReg(dst, inrByte(&m.Flags, m.readReg(dst)))
		return pc + 1
	}
}

func dcrHandler(dst regCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writeReg(dst, dcrByte(&m.Flags, m.readReg(dst)))
		return pc + 1
	}
}

func inxHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writePair(rp, m.readPair(rp)+1)
		return pc + 1
	}
}

func dcxHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.writePair(rp, m.readPair(rp)-1)
		return pc + 1
	}
}

func dadHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		hl := uint32(m.Regs.HL())
		sum := hl + uint32(m.readPair(rp))
		m.Flags.C = sum > 0xFFFF
		m.Regs.SetHL(uint16(sum))
		return pc + 1
	}
}

func rlcHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = rlc(&m.Flags, m.Regs.A)
	return pc + 1
}

func rrcHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = rrc(&m.Flags, m.Regs.A)
	return pc + 1
}

func ralHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = ral(&m.Flags, m.Regs.A)
	return pc + 1
}

func rarHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = rar(&m.Flags, m.Regs.A)
	return pc + 1
}

func daaHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = daaByte(&m.Flags, m.Regs.A)
	return pc + 1
}

func cmaHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = ^m.Regs.A
	return pc + 1
}

func stcHandler(m *Machine, pc uint16) uint16 {
	m.Flags.C = true
	return pc + 1
}

func cmcHandler(m *Machine, pc uint16) uint16 {
	m.Flags.C = !m.Flags.C
	return pc + 1
}

// --- stack ---

func pushHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		if rp == rpPSW {
			m.push16(pair(m.Regs.A, m.Flags.pack()))
		} else {
			m.push16(m.readPair(rp))
		}
		return pc + 1
	}
}

func popHandler(rp rpCode) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		v := m.pop16()
		if rp == rpPSW {
			m.Regs.A = hi(v)
			m.Flags.unpack(lo(v))
		} else {
			m.writePair(rp, v)
		}
		return pc + 1
	}
}

// --- control flow ---

func nopHandler(m *Machine, pc uint16) uint16 {
	return pc + 1
}

func hltHandler(m *Machine, pc uint16) uint16 {
	m.halted = true
	return pc
}

func jmpHandler(m *Machine, pc uint16) uint16 {
	return m.Bus.ReadWord(pc + 1)
}

func jcondHandler(c condition) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		target := m.Bus.ReadWord(pc + 1)
		if m.testCondition(c) {
			return target
		}
		return pc + 3
	}
}

func callHandler(m *Machine, pc uint16) uint16 {
	target := m.Bus.ReadWord(pc + 1)
	if target == bdosEntry {
		if m.bdosDispatch() {
			return pc // waiting for input: replay this CALL
		}
		return pc + 3
	}
	m.push16(pc + 3)
	return target
}

func ccondHandler(c condition) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		target := m.Bus.ReadWord(pc + 1)
		if !m.testCondition(c) {
			return pc + 3
		}
		if target == bdosEntry {
			if m.bdosDispatch() {
				return pc
			}
			return pc + 3
		}
		m.push16(pc + 3)
		return target
	}
}

func retHandler(m *Machine, pc uint16) uint16 {
	return m.pop16()
}

func rcondHandler(c condition) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		if m.testCondition(c) {
			return m.pop16()
		}
		return pc + 1
	}
}

func rstHandler(n byte) opHandler {
	return func(m *Machine, pc uint16) uint16 {
		m.push16(pc + 1)
		return uint16(n) * 8
	}
}

// --- I/O ---

func outHandler(m *Machine, pc uint16) uint16 {
	m.portOut(m.Bus.Read(pc+1), m.Regs.A)
	return pc + 2
}

func inHandler(m *Machine, pc uint16) uint16 {
	m.Regs.A = m.portIn(m.Bus.Read(pc + 1))
	return pc + 2
}

func diHandler(m *Machine, pc uint16) uint16 {
	m.Interrupt.Enable(false)
	return pc + 1
}

func eiHandler(m *Machine, pc uint16) uint16 {
	m.Interrupt.Enable(true)
	return pc + 1
}

func illegalOpcode(m *Machine, pc uint16) uint16 {
	m.reportIllegal(pc, m.Bus.Read(pc))
	m.halted = true
	return pc
}
