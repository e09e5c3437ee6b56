// Package ppu implements the dot-accurate Picture Processing Unit.
package ppu

import "gones/internal/memory"

// PPU is a 2C02-derivative picture processing unit, clocked one PPU dot
// at a time via Tick. Background pixels come from a pair of 16-bit
// pattern shift registers plus attribute shifters fed by an 8-dot
// nametable/attribute/pattern fetch cycle; sprites come from eight
// per-scanline shift-register units loaded at dot 340 from the OAM
// evaluation performed at dot 257.
type PPU struct {
	ppuCtrl   uint8
	ppuMask   uint8
	ppuStatus uint8
	oamAddr   uint8

	v uint16 // current VRAM address
	t uint16 // temporary VRAM address / address latch
	x uint8  // fine X scroll
	w bool   // write toggle

	memory *memory.PPUMemory

	scanline   int
	cycle      int
	frameCount uint64
	oddFrame   bool
	readBuffer uint8

	oam          [256]uint8
	secondaryOAM [32]uint8
	spriteIDs    [8]uint8
	spriteCount  uint8

	sprites [8]spriteUnit

	sprite0Hit     bool
	spriteOverflow bool

	// Background fetch pipeline
	nextTileID      uint8
	nextAttribute   uint8
	nextPatternLow  uint8
	nextPatternHigh uint8

	bgPatternLowShift  uint16
	bgPatternHighShift uint16
	bgAttrLowShift     uint16
	bgAttrHighShift    uint16

	frameBuffer [256 * 240]uint32

	nmiCallback           func()
	frameCompleteCallback func()

	backgroundEnabled bool
	spritesEnabled    bool
	renderingEnabled  bool

	nmiLineHigh bool // last-seen state of (PPUCTRL NMI enable AND vblank), for edge detection

	cycleCount uint64
}

// spriteUnit is one of the 8 hardware sprite shift-register slots.
type spriteUnit struct {
	patternLow  uint8
	patternHigh uint8
	attributes  uint8
	x           uint8 // counts down to 0, then the unit shifts for 8 dots
	active      bool
	isSpriteZero bool
}

// New creates a PPU with rendering disabled and the frame buffer black.
func New() *PPU {
	return &PPU{
		scanline: -1,
	}
}

// Reset returns the PPU to its post-power-on state.
func (p *PPU) Reset() {
	*p = PPU{
		memory:                p.memory,
		nmiCallback:           p.nmiCallback,
		frameCompleteCallback: p.frameCompleteCallback,
		scanline:              -1,
		ppuStatus:              0xA0,
	}
}

// SetMemory attaches the PPU's own address space (pattern tables via the
// cartridge, nametables, palette RAM).
func (p *PPU) SetMemory(mem *memory.PPUMemory) {
	p.memory = mem
}

// SetNMICallback installs the function called on vblank entry when
// NMI-on-vblank is enabled in PPUCTRL.
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback installs the function called once per
// completed frame (scanline 260 -> -1 wraparound).
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// ReadRegister reads a CPU-visible PPU register ($2000-$2007, mirrored).
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2002:
		status := p.ppuStatus
		p.ppuStatus &= 0x7F // clear VBL flag
		p.w = false
		p.signalNMIEdge()
		return status
	case 0x2004:
		return p.oam[p.oamAddr]
	case 0x2007:
		return p.readPPUData()
	default:
		// Write-only registers read back open bus; approximated as 0.
		return 0
	}
}

// WriteRegister writes a CPU-visible PPU register.
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x2000:
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10)
		p.updateRenderingFlags()
		p.signalNMIEdge()
	case 0x2001:
		p.ppuMask = value
		p.updateRenderingFlags()
	case 0x2002:
		// Read-only.
	case 0x2003:
		p.oamAddr = value
	case 0x2004:
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005:
		p.writePPUScroll(value)
	case 0x2006:
		p.writePPUAddr(value)
	case 0x2007:
		p.writePPUData(value)
	}
}

// WriteOAM writes directly into OAM, used by OAM DMA.
func (p *PPU) WriteOAM(address uint8, value uint8) {
	p.oam[address] = value
}

// Tick advances the PPU by one dot.
func (p *PPU) Tick() {
	p.cycleCount++

	if p.scanline >= -1 && p.scanline < 240 {
		p.renderScanlineDot()
	}

	p.advanceDot()

	if p.scanline == 241 && p.cycle == 1 {
		p.ppuStatus |= 0x80
		p.signalNMIEdge()
	}
	if p.scanline == -1 && p.cycle == 1 {
		p.ppuStatus &= 0x1F // clear vblank, sprite-zero-hit, and overflow
		p.sprite0Hit = false
		p.spriteOverflow = false
		p.signalNMIEdge()
	}
}

// advanceDot moves the dot/scanline counters, applying the odd-frame
// skip of dot 0 on scanline 0 when rendering is enabled.
func (p *PPU) advanceDot() {
	p.cycle++
	if p.cycle > 340 {
		p.cycle = 0
		p.scanline++
		if p.scanline == 0 && p.oddFrame && p.renderingEnabled {
			p.cycle = 1 // skip dot 0 of the first visible line
		}
		if p.scanline > 260 {
			p.scanline = -1
			p.frameCount++
			p.oddFrame = !p.oddFrame
			if p.frameCompleteCallback != nil {
				p.frameCompleteCallback()
			}
		}
	}
}

// renderScanlineDot runs the background/sprite pipeline for the current
// dot of a visible or pre-render scanline.
func (p *PPU) renderScanlineDot() {
	if !p.renderingEnabled || p.memory == nil {
		return
	}

	fetchCycle := (p.cycle >= 1 && p.cycle <= 256) || (p.cycle >= 321 && p.cycle <= 336)
	if fetchCycle {
		p.backgroundFetchStep()
	}

	if p.cycle == 256 {
		p.incrementY()
	}
	if p.cycle == 257 {
		p.copyX()
		p.evaluateSprites()
	}
	if p.scanline == -1 && p.cycle >= 280 && p.cycle <= 304 {
		p.copyY()
	}
	if p.cycle == 340 {
		p.fetchSpriteUnits()
	}

	if p.scanline >= 0 && p.cycle >= 1 && p.cycle <= 256 {
		p.outputPixel(p.cycle-1, p.scanline)
	}
}

// backgroundFetchStep runs one step of the 8-dot background fetch cycle
// and shifts the pattern/attribute registers every dot.
func (p *PPU) backgroundFetchStep() {
	switch p.cycle % 8 {
	case 1:
		p.loadShiftRegisters()
		p.nextTileID = p.memory.Read(0x2000 | (p.v & 0x0FFF))
	case 3:
		addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
		attr := p.memory.Read(addr)
		shift := ((p.v >> 4) & 0x04) | (p.v & 0x02)
		p.nextAttribute = (attr >> shift) & 0x03
	case 5:
		base := uint16(0x0000)
		if p.ppuCtrl&0x10 != 0 {
			base = 0x1000
		}
		p.nextPatternLow = p.memory.Read(base + uint16(p.nextTileID)*16 + p.getFineY16())
	case 7:
		base := uint16(0x0000)
		if p.ppuCtrl&0x10 != 0 {
			base = 0x1000
		}
		p.nextPatternHigh = p.memory.Read(base + uint16(p.nextTileID)*16 + p.getFineY16() + 8)
	case 0:
		p.incrementX()
	}
	p.shiftBackgroundRegisters()
}

func (p *PPU) getFineY16() uint16 { return uint16(p.getFineY()) }

// loadShiftRegisters moves the latched tile into the low byte of each
// shift register, ready to be shifted out over the next 8 dots.
func (p *PPU) loadShiftRegisters() {
	p.bgPatternLowShift = (p.bgPatternLowShift & 0xFF00) | uint16(p.nextPatternLow)
	p.bgPatternHighShift = (p.bgPatternHighShift & 0xFF00) | uint16(p.nextPatternHigh)
	attrLow, attrHigh := uint16(0), uint16(0)
	if p.nextAttribute&0x01 != 0 {
		attrLow = 0x00FF
	}
	if p.nextAttribute&0x02 != 0 {
		attrHigh = 0x00FF
	}
	p.bgAttrLowShift = (p.bgAttrLowShift & 0xFF00) | attrLow
	p.bgAttrHighShift = (p.bgAttrHighShift & 0xFF00) | attrHigh
}

func (p *PPU) shiftBackgroundRegisters() {
	p.bgPatternLowShift <<= 1
	p.bgPatternHighShift <<= 1
	p.bgAttrLowShift <<= 1
	p.bgAttrHighShift <<= 1
}

// outputPixel composites the background and sprite pipelines for pixel
// (x, y) and writes the result into the frame buffer.
func (p *PPU) outputPixel(x, y int) {
	bgColorIndex, bgPalette := uint8(0), uint8(0)
	if p.backgroundEnabled && (x >= 8 || p.ppuMask&0x02 != 0) {
		shift := uint(15 - p.x)
		bit0 := uint8((p.bgPatternLowShift >> shift) & 1)
		bit1 := uint8((p.bgPatternHighShift >> shift) & 1)
		bgColorIndex = (bit1 << 1) | bit0
		pbit0 := uint8((p.bgAttrLowShift >> shift) & 1)
		pbit1 := uint8((p.bgAttrHighShift >> shift) & 1)
		bgPalette = (pbit1 << 1) | pbit0
	}

	spColorIndex, spPalette, spPriority, spIsZero, spriteFound := uint8(0), uint8(0), false, false, false
	if p.spritesEnabled && (x >= 8 || p.ppuMask&0x04 != 0) {
		for i := range p.sprites {
			su := &p.sprites[i]
			if !su.active || su.x > 0 {
				continue
			}
			bit0 := (su.patternLow >> 7) & 1
			bit1 := (su.patternHigh >> 7) & 1
			colorIndex := (bit1 << 1) | bit0
			if colorIndex != 0 && !spriteFound {
				spColorIndex = colorIndex
				spPalette = su.attributes & 0x03
				spPriority = su.attributes&0x20 != 0
				spIsZero = su.isSpriteZero
				spriteFound = true
			}
		}
	}

	if spColorIndex != 0 && bgColorIndex != 0 && spIsZero && x != 255 {
		p.sprite0Hit = true
		p.ppuStatus |= 0x40
	}

	var rgb uint32
	switch {
	case spColorIndex != 0 && (bgColorIndex == 0 || !spPriority):
		rgb = NESColorToRGB(p.memory.Read(0x3F10 + uint16(spPalette)*4 + uint16(spColorIndex)))
	case bgColorIndex != 0:
		rgb = NESColorToRGB(p.memory.Read(0x3F00 + uint16(bgPalette)*4 + uint16(bgColorIndex)))
	default:
		rgb = NESColorToRGB(p.memory.Read(0x3F00))
	}

	p.frameBuffer[y*256+x] = rgb

	for i := range p.sprites {
		su := &p.sprites[i]
		if !su.active {
			continue
		}
		if su.x > 0 {
			su.x--
			continue
		}
		su.patternLow <<= 1
		su.patternHigh <<= 1
	}
}

// evaluateSprites scans OAM for sprites visible on the scanline that is
// about to be rendered next (dot 257 of scanline N evaluates for N+1, or
// for scanline 0 when N is the pre-render line).
func (p *PPU) evaluateSprites() {
	target := p.scanline + 1
	p.spriteCount = 0
	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	for i := range p.spriteIDs {
		p.spriteIDs[i] = 0xFF
	}

	height := 8
	if p.ppuCtrl&0x20 != 0 {
		height = 16
	}

	found := 0
	for s := 0; s < 64; s++ {
		base := s * 4
		y := int(p.oam[base])
		if target >= y+1 && target < y+1+height {
			if found < 8 {
				idx := found * 4
				p.secondaryOAM[idx] = uint8(y)
				p.secondaryOAM[idx+1] = p.oam[base+1]
				p.secondaryOAM[idx+2] = p.oam[base+2]
				p.secondaryOAM[idx+3] = p.oam[base+3]
				p.spriteIDs[found] = uint8(s)
				found++
			} else {
				p.spriteOverflow = true
				p.ppuStatus |= 0x20
				break
			}
		}
	}
	p.spriteCount = uint8(found)
}

// fetchSpriteUnits fills the 8 shift-register units from secondaryOAM,
// ready to shift out over the next scanline's visible dots.
func (p *PPU) fetchSpriteUnits() {
	height := 8
	if p.ppuCtrl&0x20 != 0 {
		height = 16
	}
	target := p.scanline + 1

	for i := range p.sprites {
		p.sprites[i] = spriteUnit{}
	}

	for i := 0; i < int(p.spriteCount); i++ {
		base := i * 4
		y := int(p.secondaryOAM[base])
		tile := p.secondaryOAM[base+1]
		attr := p.secondaryOAM[base+2]
		x := p.secondaryOAM[base+3]

		row := target - (y + 1)
		if attr&0x80 != 0 {
			row = height - 1 - row
		}
		if row < 0 || row >= height {
			continue
		}

		var patternAddr uint16
		if height == 16 {
			table := uint16(0x0000)
			if tile&0x01 != 0 {
				table = 0x1000
			}
			t := tile &^ 1
			if row >= 8 {
				t++
				row -= 8
			}
			patternAddr = table + uint16(t)*16 + uint16(row)
		} else {
			table := uint16(0x0000)
			if p.ppuCtrl&0x08 != 0 {
				table = 0x1000
			}
			patternAddr = table + uint16(tile)*16 + uint16(row)
		}

		low := p.memory.Read(patternAddr)
		high := p.memory.Read(patternAddr + 8)
		if attr&0x40 != 0 {
			low = reverseBits(low)
			high = reverseBits(high)
		}

		p.sprites[i] = spriteUnit{
			patternLow:   low,
			patternHigh:  high,
			attributes:   attr,
			x:            x,
			active:       true,
			isSpriteZero: p.spriteIDs[i] == 0,
		}
	}
}

func reverseBits(b uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r <<= 1
		r |= b & 1
		b >>= 1
	}
	return r
}

func (p *PPU) updateRenderingFlags() {
	p.backgroundEnabled = (p.ppuMask & 0x08) != 0
	p.spritesEnabled = (p.ppuMask & 0x10) != 0
	p.renderingEnabled = p.backgroundEnabled || p.spritesEnabled
}

// signalNMIEdge fires the NMI callback only on the 0->1 transition of
// (PPUCTRL NMI enable AND vblank), not on every dot where both happen to
// be set, so toggling or rewriting PPUCTRL mid-vblank cannot retrigger
// an NMI for a vblank that already signaled one.
func (p *PPU) signalNMIEdge() {
	high := (p.ppuCtrl&0x80 != 0) && (p.ppuStatus&0x80 != 0)
	if high && !p.nmiLineHigh && p.nmiCallback != nil {
		p.nmiCallback()
	}
	p.nmiLineHigh = high
}

func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
		p.x = value & 0x07
		p.w = true
	} else {
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
		p.w = false
	}
}

func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
		p.w = true
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
		p.w = false
	}
}

func (p *PPU) readPPUData() uint8 {
	var data uint8
	if p.memory == nil {
		data = 0
	} else if p.v >= 0x3F00 {
		data = p.memory.Read(p.v)
		p.readBuffer = p.memory.Read(p.v & 0x2FFF)
	} else {
		data = p.readBuffer
		p.readBuffer = p.memory.Read(p.v)
	}
	p.advanceVRAMAddress()
	return data
}

func (p *PPU) writePPUData(value uint8) {
	if p.memory != nil {
		p.memory.Write(p.v, value)
	}
	p.advanceVRAMAddress()
}

func (p *PPU) advanceVRAMAddress() {
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v++
	}
	p.v &= 0x3FFF
}

// GetFrameBuffer returns the current RGB frame buffer.
func (p *PPU) GetFrameBuffer() [256 * 240]uint32 { return p.frameBuffer }

// GetFrameCount returns the number of completed frames.
func (p *PPU) GetFrameCount() uint64 { return p.frameCount }

// GetScanline returns the current scanline (-1 to 260).
func (p *PPU) GetScanline() int { return p.scanline }

// GetCycle returns the current dot (0 to 340).
func (p *PPU) GetCycle() int { return p.cycle }

// IsRenderingEnabled reports whether background or sprite rendering is on.
func (p *PPU) IsRenderingEnabled() bool { return p.renderingEnabled }

// IsVBlank reports whether the VBL flag is currently set.
func (p *PPU) IsVBlank() bool { return (p.ppuStatus & 0x80) != 0 }

// GetCycleCount returns the total PPU dot count since the last Reset.
func (p *PPU) GetCycleCount() uint64 { return p.cycleCount }

// Scroll register helpers, operating on the loopy v/t addresses.

func (p *PPU) getFineY() int {
	return int((p.v >> 12) & 0x0007)
}

func (p *PPU) incrementX() {
	if (p.v & 0x001F) == 31 {
		p.v &= ^uint16(0x001F)
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

func (p *PPU) incrementY() {
	if (p.v & 0x7000) != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &= ^uint16(0x7000)
		y := (p.v & 0x03E0) >> 5
		if y == 29 {
			y = 0
			p.v ^= 0x0800
		} else if y == 31 {
			y = 0
		} else {
			y++
		}
		p.v = (p.v & ^uint16(0x03E0)) | (y << 5)
	}
}

func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

// NES 2C02 NTSC color palette, 64 entries.
var nesColorPalette = [64]uint32{
	0xFF666666, 0xFF002A88, 0xFF1412A7, 0xFF3B00A4, 0xFF5C007E, 0xFF6E0040, 0xFF6C0600, 0xFF561D00,
	0xFF333500, 0xFF0B4800, 0xFF005200, 0xFF004F08, 0xFF00404D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFADADAD, 0xFF155FD9, 0xFF4240FF, 0xFF7527FE, 0xFFA01ACC, 0xFFB71E7B, 0xFFB53120, 0xFF994E00,
	0xFF6B6D00, 0xFF388700, 0xFF0C9300, 0xFF008F32, 0xFF007C8D, 0xFF000000, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFF64B0FF, 0xFF9290FF, 0xFFC676FF, 0xFFF36AFF, 0xFFFE6ECC, 0xFFFE8170, 0xFFEA9E22,
	0xFFBCBE00, 0xFF88D800, 0xFF5CE430, 0xFF45E082, 0xFF48CDDE, 0xFF4F4F4F, 0xFF000000, 0xFF000000,
	0xFFFFFEFF, 0xFFC0DFFF, 0xFFD3D2FF, 0xFFE8C8FF, 0xFFFBC2FF, 0xFFFEC4EA, 0xFFFECCC5, 0xFFF7D8A5,
	0xFFE4E594, 0xFFCFF29B, 0xFFBEFBB3, 0xFFB8F8D8, 0xFFB8F8F8, 0xFF000000, 0xFF000000, 0xFF000000,
}

// NESColorToRGB converts a 6-bit NES palette index to 0x00RRGGBB.
func NESColorToRGB(colorIndex uint8) uint32 {
	if colorIndex >= 64 {
		return 0x000000
	}
	return nesColorPalette[colorIndex] & 0x00FFFFFF
}
