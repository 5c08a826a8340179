/*
 * cpm80 - telnet server, listener.
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

package telnet

import (
	"fmt"
	"net"
	"sync"
)

// Server accepts telnet connections on one address and bridges each to
// the same console — the last connection to type wins, matching a
// single-user CP/M session rather than a multiplexed multi-terminal
// front end.
type Server struct {
	wg       sync.WaitGroup
	listener net.Listener
	shutdown chan struct{}
}

// Start opens addr (host:port) and begins accepting connections, each
// bridged to console on its own goroutine.
func Start(addr string, console Console) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("telnet: listen %s: %w", addr, err)
	}
	s := &Server{listener: listener, shutdown: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop(console)
	return s, nil
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	s.wg.Wait()
}

// Addr returns the address the listener bound to, useful when the
// configured address used port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop(console Console) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				continue
			}
		}
		go Bridge(conn, console)
	}
}
