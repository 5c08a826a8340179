package command

import (
	"strings"
	"testing"

	"github.com/8080cpm/cpm80/machine"
)

func TestDispatchLoadAndStep(t *testing.T) {
	m := machine.New()
	quit, err := dispatch(m, "load 3E41 0100 extra")
	if err == nil {
		t.Fatalf("expected usage error for extra argument, got nil")
	}
	_ = quit

	quit, err = dispatch(m, "load 3E41 0100")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if quit {
		t.Fatalf("load should not quit")
	}
	if m.CurrentAddress() != 0x0100 {
		t.Fatalf("PC = %#04x, want 0x0100", m.CurrentAddress())
	}

	if _, err := dispatch(m, "step"); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.Regs.A != 0x41 {
		t.Fatalf("A = %#02x, want 0x41 after MVI A,41", m.Regs.A)
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	m := machine.New()
	_, err := dispatch(m, "frobnicate")
	if err == nil {
		t.Fatal("expected error for unknown verb")
	}
}

func TestDispatchQuit(t *testing.T) {
	m := machine.New()
	quit, err := dispatch(m, "quit")
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if !quit {
		t.Fatal("expected quit=true")
	}
}

func TestDispatchBlankLine(t *testing.T) {
	m := machine.New()
	quit, err := dispatch(m, "   ")
	if err != nil || quit {
		t.Fatalf("blank line should be a no-op, got quit=%v err=%v", quit, err)
	}
}

func TestDispatchDiskAndDir(t *testing.T) {
	m := machine.New()
	if _, err := dispatch(m, "disk sel 1"); err != nil {
		t.Fatalf("disk sel: %v", err)
	}
	if m.Disk.CurrentDrive() != 1 {
		t.Fatalf("current drive = %d, want 1", m.Disk.CurrentDrive())
	}
	if _, err := dispatch(m, "disk track 5"); err != nil {
		t.Fatalf("disk track: %v", err)
	}
	if _, err := dispatch(m, "disk bogus 1"); err == nil {
		t.Fatal("expected error for unknown disk field")
	}

	if _, err := dispatch(m, "dir 0"); err != nil {
		t.Fatalf("dir: %v", err)
	}
}

func TestCompleteCmd(t *testing.T) {
	got := completeCmd("r")
	if len(got) == 0 {
		t.Fatal("expected at least one completion for \"r\"")
	}
	for _, c := range got {
		if !strings.HasPrefix(c, "r") {
			t.Fatalf("completion %q does not start with r", c)
		}
	}
}
