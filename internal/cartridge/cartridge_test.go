package cartridge

import (
	"bytes"
	"testing"
)

func buildINES(prgBanks, chrBanks int, flags6, flags7 uint8, prgFill uint8) []byte {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(uint8(prgBanks))
	buf.WriteByte(uint8(chrBanks))
	buf.WriteByte(flags6)
	buf.WriteByte(flags7)
	buf.Write(make([]byte, 8)) // PRG-RAM size + reserved

	prg := make([]byte, prgBanks*16384)
	for i := range prg {
		prg[i] = prgFill
	}
	buf.Write(prg)

	if chrBanks > 0 {
		buf.Write(make([]byte, chrBanks*8192))
	}
	return buf.Bytes()
}

func TestLoadFromBytes_NROM(t *testing.T) {
	data := buildINES(2, 1, 0x00, 0x00, 0xAB)
	cart, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if cart.GetMirrorMode() != MirrorHorizontal {
		t.Errorf("expected horizontal mirroring, got %v", cart.GetMirrorMode())
	}
	if got := cart.ReadPRG(0x8000); got != 0xAB {
		t.Errorf("ReadPRG(0x8000) = %#x, want 0xAB", got)
	}
}

func TestLoadFromBytes_NROM_Mirrored16K(t *testing.T) {
	data := buildINES(1, 1, 0x01, 0x00, 0xCD)
	cart, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if cart.GetMirrorMode() != MirrorVertical {
		t.Errorf("expected vertical mirroring")
	}
	if got := cart.ReadPRG(0x8000); got != 0xCD {
		t.Errorf("ReadPRG(0x8000) = %#x, want 0xCD", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0xCD {
		t.Errorf("ReadPRG(0xC000) = %#x, want mirrored 0xCD", got)
	}
}

func TestLoadFromBytes_CHRRAM(t *testing.T) {
	data := buildINES(1, 0, 0, 0, 0)
	cart, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if !cart.hasCHRRAM {
		t.Fatalf("expected CHR RAM when header CHR size is zero")
	}
	cart.WriteCHR(0x10, 0x42)
	if got := cart.ReadCHR(0x10); got != 0x42 {
		t.Errorf("CHR RAM roundtrip = %#x, want 0x42", got)
	}
}

func TestLoadFromBytes_InvalidMagic(t *testing.T) {
	data := buildINES(1, 1, 0, 0, 0)
	data[0] = 'X'
	_, err := LoadFromBytes(data)
	le, ok := err.(*LoadError)
	if !ok || le.Kind != InvalidMagic {
		t.Fatalf("expected InvalidMagic, got %v", err)
	}
}

func TestLoadFromBytes_UnsupportedFormat(t *testing.T) {
	data := buildINES(1, 1, 0, 0x08, 0)
	_, err := LoadFromBytes(data)
	le, ok := err.(*LoadError)
	if !ok || le.Kind != UnsupportedFormat {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
}

func TestLoadFromBytes_UnsupportedMapper(t *testing.T) {
	data := buildINES(1, 1, 0x30, 0x00, 0) // mapper id 3
	_, err := LoadFromBytes(data)
	le, ok := err.(*LoadError)
	if !ok || le.Kind != UnsupportedMapper {
		t.Fatalf("expected UnsupportedMapper, got %v", err)
	}
}

func TestLoadFromBytes_Truncated(t *testing.T) {
	data := buildINES(2, 1, 0, 0, 0)
	_, err := LoadFromBytes(data[:len(data)-100])
	le, ok := err.(*LoadError)
	if !ok || le.Kind != Truncated {
		t.Fatalf("expected Truncated, got %v", err)
	}
}

func TestMapper002_BankSwitch(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NES\x1A")
	buf.WriteByte(4) // 4x16KiB PRG banks
	buf.WriteByte(0)
	buf.WriteByte(0x20) // mapper 2 low nibble
	buf.WriteByte(0x00)
	buf.Write(make([]byte, 8))
	for bank := uint8(0); bank < 4; bank++ {
		b := make([]byte, 16384)
		for i := range b {
			b[i] = bank
		}
		buf.Write(b)
	}

	cart, err := LoadFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("LoadFromBytes: %v", err)
	}
	if got := cart.ReadPRG(0xC000); got != 3 {
		t.Errorf("fixed last bank at 0xC000 = %d, want 3", got)
	}
	if got := cart.ReadPRG(0x8000); got != 0 {
		t.Errorf("initial low bank at 0x8000 = %d, want 0", got)
	}
	cart.WritePRG(0x8000, 2)
	if got := cart.ReadPRG(0x8000); got != 2 {
		t.Errorf("after bank switch, 0x8000 = %d, want 2", got)
	}
	if got := cart.ReadPRG(0xC000); got != 3 {
		t.Errorf("fixed last bank after switch = %d, want 3 (unchanged)", got)
	}
}
