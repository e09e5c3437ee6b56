// Package bus wires the CPU, PPU, APU, shared memory, cartridge, and
// controller ports into one console, advanced one master clock at a time.
package bus

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/ppu"
)

// hostSampleRate is the default audio output rate; nothing in this core
// depends on 44100 specifically, but it is what every ebiten audio
// context on the host side is built against.
const hostSampleRate = 44100

// Cropped frame dimensions delivered to the host: the PPU renders a full
// 256x240 field, but the top and bottom 8 scanlines were never meant to
// be seen on a CRT and essentially every NES game leaves them blank or
// garbled.
const (
	frameWidth  = 256
	frameHeight = 224
	cropTop     = 8
)

// Console is a complete NES system, clocked one PPU dot at a time via an
// internal master-clock loop: three PPU dots per CPU cycle, with the APU
// clocked on every second CPU cycle. Hosts never step the Console
// directly; they call FillAudio, which runs the system exactly as far as
// needed to produce the requested audio and reports whether a video
// frame completed along the way.
type Console struct {
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	APU    *apu.APU
	Memory *memory.Memory
	Input  *input.InputState

	cart *cartridge.Cartridge

	masterClock  uint64
	apuTurn      bool
	nmiLine      bool
	lastScanline int
}

// LoadFromFile loads an iNES ROM from disk and returns a Console ready to run.
func LoadFromFile(path string) (*Console, error) {
	cart, err := cartridge.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return newConsole(cart), nil
}

// LoadFromBytes loads an iNES ROM image already in memory and returns a
// Console ready to run.
func LoadFromBytes(buf []byte) (*Console, error) {
	cart, err := cartridge.LoadFromBytes(buf)
	if err != nil {
		return nil, err
	}
	return newConsole(cart), nil
}

func newConsole(cart *cartridge.Cartridge) *Console {
	c := &Console{
		PPU:          ppu.New(),
		APU:          apu.New(hostSampleRate),
		Input:        input.NewInputState(),
		cart:         cart,
		lastScanline: -1,
	}

	c.Memory = memory.New(c.PPU, c.APU, cart)
	c.Memory.SetInputSystem(c.Input)
	c.Memory.SetDMACallback(func(page uint8) { c.CPU.StartOAMDMA(page) })

	c.CPU = cpu.New(c.Memory)
	c.PPU.SetNMICallback(func() { c.nmiLine = true })

	mirror := memory.MirrorMode(cart.GetMirrorMode())
	c.PPU.SetMemory(memory.NewPPUMemory(cart, mirror))

	c.Reset()
	return c
}

// Reset returns every component to its post-power-on state without
// reloading the cartridge.
func (c *Console) Reset() {
	c.CPU.Reset()
	c.PPU.Reset()
	c.APU.Reset()
	c.Input.Reset()
	c.masterClock = 0
	c.apuTurn = false
	c.nmiLine = false
	c.lastScanline = -1
}

// Close releases the Console's resources. Nothing here outlives the
// Console itself; the method exists so hosts can treat a Console like
// any other closeable resource.
func (c *Console) Close() error {
	return nil
}

// SetInput1 sets controller 1's full button state, one bit per button in
// A/B/Select/Start/Up/Down/Left/Right order.
func (c *Console) SetInput1(buttons uint8) {
	c.Input.SetInput1(buttons)
}

// SetInput2 sets controller 2's full button state.
func (c *Console) SetInput2(buttons uint8) {
	c.Input.SetInput2(buttons)
}

// FillAudio runs the console forward until nSamples of audio have been
// produced, writes them as mono 16-bit PCM into outBuf, and paints
// frameBuf (256x224 RGBA, top/bottom 8 scanlines cropped) whenever a
// video frame completed during the run. It reports whether a new frame
// is available in frameBuf.
func (c *Console) FillAudio(outBuf []int16, nSamples int, frameBuf []byte) bool {
	startFrame := c.PPU.GetFrameCount()

	clocks := c.APU.ClocksNeeded(nSamples)
	for i := 0; i < clocks; i++ {
		c.tick()
	}

	c.APU.EndFrame(c.masterClock)
	c.APU.ReadSamples(outBuf, nSamples)

	newFrame := c.PPU.GetFrameCount() != startFrame
	if newFrame {
		c.paintFrame(frameBuf)
	}
	return newFrame
}

// tick advances the system by one CPU cycle: three PPU dots, the NMI and
// IRQ lines sampled and forwarded, the CPU itself, and the APU on every
// second call.
func (c *Console) tick() {
	for i := 0; i < 3; i++ {
		c.PPU.Tick()
		if scanline := c.PPU.GetScanline(); scanline != c.lastScanline {
			c.lastScanline = scanline
			if scanline >= 0 && scanline < 240 {
				c.cart.ScanlineNotify()
			}
		}
	}

	if c.nmiLine {
		c.CPU.SetNMI(true)
		c.nmiLine = false
	} else {
		c.CPU.SetNMI(false)
	}
	c.CPU.SetIRQ(c.APU.GetFrameIRQ() || c.cart.IRQPending())

	c.CPU.Tick()
	c.masterClock = c.CPU.Cycles()

	c.APU.TickTriangleTimer()
	c.apuTurn = !c.apuTurn
	if c.apuTurn {
		c.APU.Tick(c.masterClock)
	}
}

// paintFrame crops the PPU's 256x240 frame buffer to the host-visible
// 256x224 region and expands it into RGBA bytes.
func (c *Console) paintFrame(frameBuf []byte) {
	fb := c.PPU.GetFrameBuffer()
	i := 0
	for y := cropTop; y < cropTop+frameHeight; y++ {
		row := y * 256
		for x := 0; x < frameWidth; x++ {
			px := fb[row+x]
			frameBuf[i+0] = uint8(px >> 16)
			frameBuf[i+1] = uint8(px >> 8)
			frameBuf[i+2] = uint8(px)
			frameBuf[i+3] = 0xFF
			i += 4
		}
	}
}
