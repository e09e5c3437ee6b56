package graphics

import (
	"bytes"
	"path/filepath"
	"testing"

	"gones/internal/bus"
)

// buildNROM assembles a minimal 32KB NROM iNES image with a reset vector
// pointing at $8000, for tests that only need a console to run, not a
// particular game.
func buildNROM() []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(2) // 2x16KB PRG
	buf.WriteByte(1) // 1x8KB CHR
	buf.WriteByte(0x00)
	buf.WriteByte(0x00)
	buf.Write(make([]byte, 8))

	prg := make([]byte, 32768)
	for i := range prg {
		prg[i] = 0xEA // NOP
	}
	prg[0x7FFC] = 0x00
	prg[0x7FFD] = 0x80
	buf.Write(prg)
	buf.Write(make([]byte, 8192))

	return buf.Bytes()
}

func newTestConsole(t *testing.T) *bus.Console {
	t.Helper()
	c, err := bus.LoadFromBytes(buildNROM())
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	return c
}

func TestHeadlessBackend_RunFramesInvokesCallbackOncePerFrame(t *testing.T) {
	h := NewHeadlessBackend(newTestConsole(t), 256)

	count := 0
	h.RunFrames(3, func(frame []byte) {
		count++
		if len(frame) != frameWidth*frameHeight*4 {
			t.Errorf("frame length = %d, want %d", len(frame), frameWidth*frameHeight*4)
		}
	})

	if count != 3 {
		t.Errorf("onFrame called %d times, want 3", count)
	}
}

func TestHeadlessBackend_DumpPNGWritesFile(t *testing.T) {
	h := NewHeadlessBackend(newTestConsole(t), 256)
	path := filepath.Join(t.TempDir(), "frame.png")

	if err := h.DumpPNG(2, path); err != nil {
		t.Fatalf("DumpPNG: %v", err)
	}
}
