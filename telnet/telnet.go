/*
 * cpm80 - telnet console bridge
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package telnet bridges TCP/telnet clients to a machine's console
// ring: every accepted connection shares the one CP/M console, bytes
// typed by a client become PutChar calls and bytes the guest prints are
// written back to a socket. There is exactly one console, unlike the
// teacher's per-device telnet multiplexer, so one listener is enough.
package telnet

import (
	"net"
	"time"
)

// Telnet negotiation constants (§7's network console is a dumb byte
// relay; only enough negotiation to stop the client from local-echoing
// or line-buffering is implemented).
const (
	tnIAC  byte = 255
	tnDO   byte = 253
	tnWILL byte = 251
	tnWONT byte = 252

	tnOptionEcho byte = 1
	tnOptionSGA  byte = 3
	tnOptionLine byte = 34
)

// initString tells the client: don't line-buffer, we'll do the
// echoing, and go-ahead is unnecessary.
var initString = []byte{
	tnIAC, tnWONT, tnOptionLine,
	tnIAC, tnWILL, tnOptionEcho,
	tnIAC, tnWILL, tnOptionSGA,
}

// Console is the guest-side endpoint a telnet connection drives.
// *machine.Machine satisfies it without telnet importing machine,
// avoiding a dependency from the core engine onto the host layer.
type Console interface {
	PutChar(ch byte)
	DrainOutput() []byte
}

// pollInterval paces the write loop's check for newly buffered console
// output; the guest program steps independently of this goroutine.
const pollInterval = 20 * time.Millisecond

// Bridge copies bytes between conn and console until conn closes,
// stripping/acknowledging IAC sequences rather than relaying them.
func Bridge(conn net.Conn, console Console) {
	defer conn.Close()
	_, _ = conn.Write(initString)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, console)
	}()

	writeLoop(conn, console, done)
}

func readLoop(conn net.Conn, console Console) {
	buf := make([]byte, 256)
	inIAC := false
	skip := 0
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			switch {
			case skip > 0:
				skip--
			case inIAC:
				inIAC = false
				switch b {
				case tnDO, tnWILL, tnWONT:
					skip = 1 // one more byte (the option) follows
				case tnIAC:
					console.PutChar(tnIAC)
				}
			case b == tnIAC:
				inIAC = true
			default:
				console.PutChar(b)
			}
		}
	}
}

func writeLoop(conn net.Conn, console Console, done <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			out := console.DrainOutput()
			if len(out) == 0 {
				continue
			}
			if _, err := conn.Write(out); err != nil {
				return
			}
		}
	}
}
