package machine

// Sample file content bootstrapped onto fresh disk images (§4.10).
// HELLO.COM and PLOP.COM are hand-assembled 8080/CP/M .COM images: a
// .COM file loads at 0x0100 and runs from there. Each loads DE with its
// message, calls BDOS print string (fn 9), and halts.

const welcomeText = "Welcome to the CP/M 2.2 workspace.\r\n" +
	"Drive A: holds this text and two sample .COM programs.\r\n"

const helpText = "HELP.TXT\r\n" +
	"  DIR            list files on the current drive\r\n" +
	"  TYPE <file>    print a text file\r\n" +
	"  <name>.COM     run a program\r\n" +
	"  B:             switch to drive B\r\n"

const readmeText = "README.TXT\r\n" +
	"This image was generated on first boot; it is yours to modify.\r\n" +
	"Changes are written back to A.DSK/B.DSK as they happen.\r\n"

// helloCOM: print "Hello, CP/M world!\r\n$" and halt.
var helloCOM = assembleMessageProgram("Hello, CP/M world!\r\n")

// plopCOM: print "plop.\r\n$" and halt — a minimal smoke-test
// program distinct from HELLO.COM for scripts that need two.
var plopCOM = assembleMessageProgram("plop.\r\n")

// assembleMessageProgram builds a .COM image: LXI D,msg ; MVI C,9 ;
// CALL 5 ; HLT ; msg '$'-terminated, immediately following the code.
func assembleMessageProgram(msg string) []byte {
	const codeLen = 9
	msgAddr := uint16(0x0100 + codeLen)
	code := []byte{
		0x11, byte(msgAddr), byte(msgAddr >> 8), // LXI D,msgAddr
		0x0E, 0x09, // MVI C,9
		0xCD, 0x05, 0x00, // CALL 5
		0x76, // HLT
	}
	out := make([]byte, 0, codeLen+len(msg)+1)
	out = append(out, code...)
	out = append(out, msg...)
	out = append(out, '$')
	return out
}
