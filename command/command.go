/*
 * cpm80 - interactive command loop
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

// Package command implements the reference interactive front end: a
// liner-backed REPL driving one machine.Machine through its embedding
// API (§7).
package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/8080cpm/cpm80/machine"
	"github.com/8080cpm/cpm80/util/hexutil"
)

// Run starts the interactive loop, reading lines from stdin via liner
// until "quit" or EOF. It returns only when the session ends.
func Run(m *machine.Machine) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		return completeCmd(partial)
	})

	for {
		text, err := line.Prompt("cpm80> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("reading command line", "error", err)
			return
		}
		line.AppendHistory(text)

		quit, err := dispatch(m, text)
		if err != nil {
			fmt.Println("error:", err)
		}
		if quit {
			return
		}
	}
}

var verbs = []string{"load", "run", "step", "reset", "regs", "in", "out", "disk", "dir", "quit", "help"}

func completeCmd(partial string) []string {
	var out []string
	for _, v := range verbs {
		if strings.HasPrefix(v, partial) {
			out = append(out, v)
		}
	}
	return out
}

// dispatch parses one command line and applies it to m. quit is true
// only for "quit".
func dispatch(m *machine.Machine, text string) (quit bool, err error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false, nil
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "load":
		return false, cmdLoad(m, args)
	case "run":
		return false, cmdRun(m, args)
	case "step":
		return false, cmdStep(m, args)
	case "reset":
		fmt.Print(m.Reset())
		return false, nil
	case "regs":
		fmt.Print(m.Dump())
		return false, nil
	case "in":
		return false, cmdIn(m, args)
	case "out":
		return false, cmdOut(m)
	case "disk":
		return false, cmdDisk(m, args)
	case "dir":
		return false, cmdDir(m, args)
	case "help":
		printHelp()
		return false, nil
	case "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try \"help\")", verb)
	}
}

func printHelp() {
	fmt.Println("load <hex> <origin>   write hex bytes at origin and set PC")
	fmt.Println("run                   execute until halt or blocked on input")
	fmt.Println("step [n]              execute n instructions (default 1)")
	fmt.Println("reset                 clear CPU/bus/console, rehome the disk")
	fmt.Println("regs                  print PC/SP and the 8-bit registers")
	fmt.Println("in <char>             feed one character into the console")
	fmt.Println("out                   print and clear pending console output")
	fmt.Println("disk sel|track|sector|dma <value>   set disk controller state")
	fmt.Println("dir                   list the current drive's directory")
	fmt.Println("quit                  exit")
}

func cmdLoad(m *machine.Machine, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: load <hex-bytes> <origin-hex>")
	}
	data, err := hexutil.Parse(args[0])
	if err != nil {
		return err
	}
	origin, err := strconv.ParseUint(args[1], 16, 16)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	m.Load(data, uint16(origin))
	fmt.Print(m.Dump())
	return nil
}

func cmdRun(m *machine.Machine, args []string) error {
	var max uint64
	if len(args) == 1 {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("max instructions: %w", err)
		}
		max = n
	}
	n := m.Run(max)
	fmt.Printf("ran %d instructions\n%s", n, m.Dump())
	if m.IsWaitingForInput() {
		fmt.Println("(blocked waiting for console input)")
	}
	if err := m.LastIllegalOpcode(); err != nil {
		fmt.Println("halted:", err)
	}
	return nil
}

func cmdStep(m *machine.Machine, args []string) error {
	n := 1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step count: %w", err)
		}
		n = v
	}
	var dump string
	for i := 0; i < n; i++ {
		dump = m.Step()
	}
	fmt.Print(dump)
	return nil
}

func cmdIn(m *machine.Machine, args []string) error {
	if len(args) != 1 || len(args[0]) != 1 {
		return errors.New("usage: in <single-char>")
	}
	m.PutChar(args[0][0])
	return nil
}

func cmdOut(m *machine.Machine) error {
	out := m.DrainOutput()
	fmt.Print(string(out))
	return nil
}

func cmdDisk(m *machine.Machine, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: disk sel|track|sector|dma <value>")
	}
	value, err := strconv.ParseUint(args[1], 16, 16)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	switch args[0] {
	case "sel":
		if !m.Disk.SelectDrive(int(value)) {
			return fmt.Errorf("no such drive %d", value)
		}
	case "track":
		m.Disk.SetTrack(byte(value))
	case "sector":
		m.Disk.SetSector(byte(value))
	case "dma":
		m.Disk.SetDMA(uint16(value))
	default:
		return fmt.Errorf("unknown disk field %q", args[0])
	}
	return nil
}

func cmdDir(m *machine.Machine, args []string) error {
	drive := m.Disk.CurrentDrive()
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("drive: %w", err)
		}
		drive = v
	}
	names := m.Directory.List(drive)
	if len(names) == 0 {
		fmt.Println("no files")
		return nil
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
