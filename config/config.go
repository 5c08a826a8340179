/*
 * cpm80 - Configuration file parser
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

// Package config reads the host-side settings a cpm80 session needs
// beyond the flags on its command line: where the disk images live,
// whether console input is echoed, and the optional telnet front end.
//
// File format: one "key = value" pair per line, '#' starts a
// comment that runs to end of line, blank lines are ignored.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the settings this emulator cares about (§4.12).
type Config struct {
	DiskPath  string // directory holding A.DSK/B.DSK
	Echo      bool   // echo console input read by BDOS fn 1
	Telnet    string // "host:port" to listen on, empty disables it
	Bootstrap bool   // write sample files into a freshly created image
}

// Default returns the settings used when no config file is given.
// DiskPath matches §6's embedding-API default: $HOME/Documents, falling
// back to "." if the home directory can't be determined.
func Default() Config {
	return Config{
		DiskPath:  defaultDiskPath(),
		Echo:      true,
		Telnet:    "",
		Bootstrap: true,
	}
}

func defaultDiskPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "Documents")
}

// Load reads path, starting from Default() and overriding whichever
// keys appear.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			return Config{}, fmt.Errorf("config: line %d: expected key = value, got %q", lineNumber, line)
		}
		if err := cfg.apply(key, value); err != nil {
			return Config{}, fmt.Errorf("config: line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func splitAssignment(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(strings.ToLower(line[:i])), strings.TrimSpace(line[i+1:]), true
}

func (cfg *Config) apply(key, value string) error {
	switch key {
	case "diskpath":
		cfg.DiskPath = value
	case "echo":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("echo: %w", err)
		}
		cfg.Echo = b
	case "telnet":
		cfg.Telnet = value
	case "bootstrap":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		cfg.Bootstrap = b
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}
