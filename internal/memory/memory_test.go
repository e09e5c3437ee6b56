package memory

import "testing"

type stubPPU struct {
	regs [8]uint8
}

func (p *stubPPU) ReadRegister(address uint16) uint8 { return p.regs[address&7] }
func (p *stubPPU) WriteRegister(address uint16, value uint8) {
	p.regs[address&7] = value
}

type stubAPU struct {
	lastWriteAddr uint16
	lastWriteVal  uint8
	status        uint8
}

func (a *stubAPU) WriteRegister(address uint16, value uint8) {
	a.lastWriteAddr, a.lastWriteVal = address, value
}
func (a *stubAPU) ReadStatus() uint8 { return a.status }

type stubInput struct {
	lastWriteVal uint8
	readValue    uint8
}

func (i *stubInput) Read(address uint16) uint8 { return i.readValue }
func (i *stubInput) Write(address uint16, value uint8) {
	i.lastWriteVal = value
}

type stubCartridge struct {
	prg [0x10000]uint8
	chr [0x2000]uint8
}

func (c *stubCartridge) ReadPRG(address uint16) uint8  { return c.prg[address] }
func (c *stubCartridge) WritePRG(address uint16, v uint8) { c.prg[address] = v }
func (c *stubCartridge) ReadCHR(address uint16) uint8  { return c.chr[address] }
func (c *stubCartridge) WriteCHR(address uint16, v uint8) { c.chr[address] = v }

func newTestMemory() (*Memory, *stubPPU, *stubAPU, *stubInput, *stubCartridge) {
	ppu := &stubPPU{}
	apu := &stubAPU{}
	input := &stubInput{}
	cart := &stubCartridge{}
	m := New(ppu, apu, cart)
	m.SetInputSystem(input)
	return m, ppu, apu, input, cart
}

func TestRAMMirroring(t *testing.T) {
	m, _, _, _, _ := newTestMemory()
	m.Write(0x0000, 0x42)
	for _, mirror := range []uint16{0x0000, 0x0800, 0x1000, 0x1800} {
		if got := m.Read(mirror); got != 0x42 {
			t.Errorf("Read(%#04x) = %#x, want 0x42", mirror, got)
		}
	}
}

func TestPPURegisterMirroring(t *testing.T) {
	m, ppu, _, _, _ := newTestMemory()
	m.Write(0x2000, 0x11)
	if ppu.regs[0] != 0x11 {
		t.Fatalf("PPUCTRL write did not land")
	}
	m.Write(0x2008, 0x22) // mirrors 0x2000
	if ppu.regs[0] != 0x22 {
		t.Errorf("mirrored write at 0x2008 did not hit register 0, got %#x", ppu.regs[0])
	}
}

func TestAPUAndControllerDispatch(t *testing.T) {
	m, _, apu, input, _ := newTestMemory()
	m.Write(0x4000, 0x7F)
	if apu.lastWriteAddr != 0x4000 || apu.lastWriteVal != 0x7F {
		t.Errorf("APU register write not dispatched correctly")
	}
	m.Write(0x4016, 0x01)
	if input.lastWriteVal != 0x01 {
		t.Errorf("controller strobe write not dispatched")
	}
	input.readValue = 0x01
	if got := m.Read(0x4016); got != 0x01 {
		t.Errorf("controller read = %#x, want 0x01", got)
	}
	apu.status = 0x18
	if got := m.Read(0x4015); got != 0x18 {
		t.Errorf("APU status read = %#x, want 0x18", got)
	}
}

func TestUnmappedReadsReturnZero(t *testing.T) {
	m, _, _, _, _ := newTestMemory()
	if got := m.Read(0x4008); got != 0 {
		t.Errorf("write-only APU register read = %#x, want 0", got)
	}
	if got := m.Read(0x4FFF); got != 0 {
		t.Errorf("unmapped expansion area read = %#x, want 0", got)
	}
}

func TestCartridgePRGDispatch(t *testing.T) {
	m, _, _, _, cart := newTestMemory()
	cart.prg[0x8000] = 0x99
	if got := m.Read(0x8000); got != 0x99 {
		t.Errorf("PRG ROM read = %#x, want 0x99", got)
	}
	m.Write(0x6000, 0x55)
	if cart.prg[0x6000] != 0x55 {
		t.Errorf("SRAM write did not reach cartridge")
	}
}

func TestPPUMemoryNametableMirroring(t *testing.T) {
	cart := &stubCartridge{}
	pm := NewPPUMemory(cart, MirrorHorizontal)
	pm.Write(0x2000, 0xAB)
	if got := pm.Read(0x2400); got != 0xAB {
		t.Errorf("horizontal mirroring: 0x2400 = %#x, want 0xAB", got)
	}
	if got := pm.Read(0x2800); got == 0xAB {
		t.Errorf("horizontal mirroring: 0x2800 should be a distinct bank")
	}

	pm2 := NewPPUMemory(cart, MirrorVertical)
	pm2.Write(0x2000, 0xCD)
	if got := pm2.Read(0x2800); got != 0xCD {
		t.Errorf("vertical mirroring: 0x2800 = %#x, want 0xCD", got)
	}
}

func TestPaletteRAMMirroringRoundTrip(t *testing.T) {
	cart := &stubCartridge{}
	pm := NewPPUMemory(cart, MirrorHorizontal)
	for i := uint16(0); i < 32; i++ {
		pm.Write(0x3F00+i, uint8(i))
	}
	for i := uint16(0); i < 32; i++ {
		want := uint8(i)
		if i < 0x10 && i%4 == 0 {
			want = uint8(i + 0x10) // overwritten by the later write to its $10/$14/$18/$1C mirror
		}
		if got := pm.Read(0x3F00 + i); got != want {
			t.Errorf("palette[%d] = %#x, want %#x", i, got, want)
		}
	}
	pm.Write(0x3F00, 0x0F)
	pm.Write(0x3F10, 0x2A)
	if got := pm.Read(0x3F00); got != 0x2A {
		t.Errorf("palette mirror $3F10 -> $3F00 = %#x, want 0x2A", got)
	}
}

func TestOAMDMAFallback(t *testing.T) {
	m, ppu, _, _, cart := newTestMemory()
	for i := 0; i < 256; i++ {
		cart.prg[0x8000+i] = uint8(i)
	}
	// performOAMDMA reads through m.Read, which for $8000+ goes to the cartridge.
	m.performOAMDMA(0x80)
	if ppu.regs[4] != 0xFF {
		t.Errorf("last OAMDATA write = %#x, want 0xFF", ppu.regs[4])
	}
}
