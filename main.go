/*
 * cpm80 - Main process.
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

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/8080cpm/cpm80/command"
	"github.com/8080cpm/cpm80/config"
	"github.com/8080cpm/cpm80/machine"
	"github.com/8080cpm/cpm80/telnet"
	"github.com/8080cpm/cpm80/util/hexutil"
	"github.com/8080cpm/cpm80/util/logger"
)

// loadProgram parses a hex-pair program image and an origin address and
// loads it into m, the non-interactive counterpart of the command
// loop's "load" verb (-p/-o flags).
func loadProgram(m *machine.Machine, hex, origin string) error {
	data, err := hexutil.Parse(hex)
	if err != nil {
		return err
	}
	addr, err := strconv.ParseUint(origin, 16, 16)
	if err != nil {
		return err
	}
	m.Load(data, uint16(addr))
	return nil
}

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optDiskPath := getopt.StringLong("diskpath", 'd', "", "Directory holding A.DSK/B.DSK")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optProgram := getopt.StringLong("program", 'p', "", "Hex program to load at startup")
	optOrigin := getopt.StringLong("origin", 'o', "0100", "Load origin (hex)")
	optTelnet := getopt.StringLong("telnet", 't', "", "Telnet listen address (host:port), empty disables")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("creating log file", "path", *optLogFile, "error", err)
			os.Exit(1)
		}
		file = f
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, false))
	slog.SetDefault(Logger)

	cfg := config.Default()
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			Logger.Error("loading configuration", "path", *optConfig, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *optDiskPath != "" {
		cfg.DiskPath = *optDiskPath
	}
	if *optTelnet != "" {
		cfg.Telnet = *optTelnet
	}

	Logger.Info("cpm80 started", "diskpath", cfg.DiskPath)

	m := machine.New()
	if err := m.LoadImages(cfg.DiskPath, cfg.Bootstrap); err != nil {
		Logger.Error("loading disk images", "error", err)
		os.Exit(1)
	}
	m.SetEcho(cfg.Echo)

	if *optProgram != "" {
		if err := loadProgram(m, *optProgram, *optOrigin); err != nil {
			Logger.Error("loading startup program", "error", err)
			os.Exit(1)
		}
	}

	var server *telnet.Server
	if cfg.Telnet != "" {
		s, err := telnet.Start(cfg.Telnet, m)
		if err != nil {
			Logger.Error("starting telnet server", "error", err)
			os.Exit(1)
		}
		server = s
		Logger.Info("telnet listening", "addr", server.Addr().String())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		Logger.Info("shutting down")
		if server != nil {
			server.Stop()
		}
		os.Exit(0)
	}()

	command.Run(m)

	if server != nil {
		server.Stop()
	}
	Logger.Info("cpm80 exiting")
}
