/*
 * cpm80 - Hex encode/decode helpers.
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

// Package hexutil formats and parses the hex-pair strings the command
// loop uses for "load" and register/memory display.
package hexutil

import (
	"fmt"
	"strings"
)

var hexMap = "0123456789ABCDEF"

// FormatByte writes a byte as two hex digits.
func FormatByte(str *strings.Builder, data byte) {
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

// FormatWord writes a 16-bit value as four hex digits.
func FormatWord(str *strings.Builder, data uint16) {
	str.WriteByte(hexMap[(data>>12)&0xf])
	str.WriteByte(hexMap[(data>>8)&0xf])
	str.WriteByte(hexMap[(data>>4)&0xf])
	str.WriteByte(hexMap[data&0xf])
}

// FormatBytes writes every byte in data as a hex pair, space-separated
// if space is true.
func FormatBytes(str *strings.Builder, space bool, data []byte) {
	for _, b := range data {
		FormatByte(str, b)
		if space {
			str.WriteByte(' ')
		}
	}
}

// Bytes renders data as a single hex string with no separators.
func Bytes(data []byte) string {
	var b strings.Builder
	FormatBytes(&b, false, data)
	return b.String()
}

// Parse decodes a hex-pair string (whitespace between pairs is
// tolerated, everything else must be a hex digit) into bytes, for the
// "load" command's program image argument.
func Parse(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hexutil: odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := nibble(s[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := nibble(s[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func nibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("hexutil: invalid hex digit %q", c)
	}
}
