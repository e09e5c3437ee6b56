// Package apu implements the five-unit audio processing pipeline: two
// pulse channels, a triangle channel, a noise channel, and the frame
// sequencer that drives their envelope/length/sweep units. Output is
// mixed through the non-linear pulse/TND lookup and resampled to the host
// sample rate by a pair of independent resamplers (see Resampler; no
// band-limiting filter is applied).
package apu

// APU represents the NES Audio Processing Unit.
type APU struct {
	pulse1   PulseChannel
	pulse2   PulseChannel
	triangle TriangleChannel
	noise    NoiseChannel

	frameCounter     uint16
	frameMode        bool // false = 4-step, true = 5-step
	frameIRQEnable   bool
	frameCounterStep uint8
	frameIRQFlag     bool

	channelEnable [4]bool // pulse1, pulse2, triangle, noise

	pulseResampler *Resampler
	tndResampler   *Resampler
	lastPulseLevel int32
	lastTNDLevel   int32
	frameStartTime int64

	cycles uint64
}

// PulseChannel represents a pulse wave channel.
type PulseChannel struct {
	dutyCycle       uint8
	envelopeLoop    bool
	envelopeDisable bool
	volume          uint8

	sweepEnable  bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepReload  bool
	sweepCounter uint8

	timer        uint16
	timerCounter uint16

	lengthCounter uint8
	lengthHalt    bool

	envelopeStart   bool
	envelopeCounter uint8
	envelopeDivider uint8

	dutyIndex    uint8
	sequencerPos uint8
}

// TriangleChannel represents the triangle wave channel.
type TriangleChannel struct {
	lengthCounterHalt bool
	linearCounterLoad uint8

	timer        uint16
	timerCounter uint16

	lengthCounter uint8

	linearCounter       uint8
	linearCounterReload bool

	sequencerPos uint8
}

// NoiseChannel represents the noise channel.
type NoiseChannel struct {
	envelopeLoop    bool
	envelopeDisable bool
	volume          uint8

	mode         bool
	periodIndex  uint8
	timerCounter uint16

	lengthCounter uint8
	lengthHalt    bool

	envelopeStart   bool
	envelopeCounter uint8
	envelopeDivider uint8

	shiftRegister uint16
}

// New creates an APU wired for NTSC timing and the given host sample rate.
func New(hostSampleRate int) *APU {
	const ntscCPUFrequency = 1789773.0
	apu := &APU{
		frameMode:      false,
		frameIRQEnable: true,
		pulseResampler: NewResampler(ntscCPUFrequency, float64(hostSampleRate)),
		tndResampler:   NewResampler(ntscCPUFrequency, float64(hostSampleRate)),
	}
	apu.noise.shiftRegister = 1
	return apu
}

// Reset returns the APU to its post-power-on state.
func (apu *APU) Reset() {
	apu.pulse1 = PulseChannel{}
	apu.pulse2 = PulseChannel{}
	apu.triangle = TriangleChannel{}
	apu.noise = NoiseChannel{shiftRegister: 1}

	apu.frameCounter = 0
	apu.frameCounterStep = 0
	apu.frameMode = false
	apu.frameIRQEnable = true
	apu.frameIRQFlag = false

	for i := range apu.channelEnable {
		apu.channelEnable[i] = false
	}

	apu.cycles = 0
	apu.lastPulseLevel = 0
	apu.lastTNDLevel = 0
	apu.frameStartTime = 0
}

// Tick advances the APU by one APU cycle (every second CPU cycle).
// masterClock is the CPU's monotonic cycle counter, used as the
// resamplers' common time base.
func (apu *APU) Tick(masterClock uint64) {
	apu.cycles++

	apu.stepFrameCounter()
	apu.stepChannelTimers()
	apu.mix(int64(masterClock) - apu.frameStartTime)
}

func (apu *APU) stepFrameCounter() {
	apu.frameCounter++

	// frameCounter increments once per APU.Tick call, i.e. once per APU
	// cycle (every second CPU cycle), so these thresholds are the NTSC
	// frame sequence's CPU-cycle steps halved.
	if apu.frameMode {
		switch apu.frameCounter {
		case 3728:
			apu.clockEnvelopeAndLinear()
		case 7456:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 11185:
			apu.clockEnvelopeAndLinear()
		case 18640:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
	} else {
		switch apu.frameCounter {
		case 3728:
			apu.clockEnvelopeAndLinear()
		case 7456:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 11185:
			apu.clockEnvelopeAndLinear()
		case 14914:
			apu.clockEnvelopeAndLinear()
			apu.clockLengthAndSweep()
		case 14915:
			if apu.frameIRQEnable {
				apu.frameIRQFlag = true
			}
			apu.frameCounter = 0
			apu.frameCounterStep = 0
		}
	}
}

func (apu *APU) clockEnvelopeAndLinear() {
	apu.clockPulseEnvelope(&apu.pulse1)
	apu.clockPulseEnvelope(&apu.pulse2)
	apu.clockNoiseEnvelope(&apu.noise)
	apu.clockTriangleLinear(&apu.triangle)
}

func (apu *APU) clockLengthAndSweep() {
	apu.clockPulseLength(&apu.pulse1)
	apu.clockPulseSweep(&apu.pulse1, true)
	apu.clockPulseLength(&apu.pulse2)
	apu.clockPulseSweep(&apu.pulse2, false)
	apu.clockTriangleLength(&apu.triangle)
	apu.clockNoiseLength(&apu.noise)
}

func (apu *APU) stepChannelTimers() {
	if apu.channelEnable[0] {
		apu.stepPulseTimer(&apu.pulse1)
	}
	if apu.channelEnable[1] {
		apu.stepPulseTimer(&apu.pulse2)
	}
	if apu.channelEnable[3] {
		apu.stepNoiseTimer(&apu.noise)
	}
}

// TickTriangleTimer advances the triangle channel's timer by one CPU
// cycle. Unlike pulse and noise, the triangle's timer divides the CPU
// clock directly instead of the halved APU clock; clocking it alongside
// the other channels in stepChannelTimers would drop its pitch an octave.
func (apu *APU) TickTriangleTimer() {
	if apu.channelEnable[2] {
		apu.stepTriangleTimer(&apu.triangle)
	}
}

// mix evaluates the non-linear mixer and feeds the two resamplers only
// when the integer output level actually changes, per the contract of
// a delta-based band-limited resampler.
func (apu *APU) mix(clockTime int64) {
	pulse1Out := apu.getPulseOutput(&apu.pulse1)
	pulse2Out := apu.getPulseOutput(&apu.pulse2)
	triangleOut := apu.getTriangleOutput(&apu.triangle)
	noiseOut := apu.getNoiseOutput(&apu.noise)

	pulseLevel := pulseLookup(pulse1Out + pulse2Out)
	tndLevel := tndLookup(3*triangleOut + 2*noiseOut)

	if pulseLevel != apu.lastPulseLevel {
		apu.pulseResampler.AddDelta(clockTime, pulseLevel-apu.lastPulseLevel)
		apu.lastPulseLevel = pulseLevel
	}
	if tndLevel != apu.lastTNDLevel {
		apu.tndResampler.AddDelta(clockTime, tndLevel-apu.lastTNDLevel)
		apu.lastTNDLevel = tndLevel
	}
}

// pulseLookup and tndLookup implement the standard non-linear mixer
// formulas, scaled to the int16 PCM range.
func pulseLookup(index uint8) int32 {
	if index == 0 {
		return 0
	}
	level := 95.52 / (8128.0/float64(index) + 100.0)
	return int32(level * 32767.0)
}

func tndLookup(index uint8) int32 {
	if index == 0 {
		return 0
	}
	level := 163.67 / (24329.0/float64(index) + 100.0)
	return int32(level * 32767.0)
}

// ClocksNeeded returns the number of CPU clocks that must elapse for
// the resamplers to produce nSamples of output.
func (apu *APU) ClocksNeeded(nSamples int) int {
	return apu.pulseResampler.ClocksNeeded(nSamples)
}

// EndFrame marks the end of a FillAudio batch, relative to its start.
func (apu *APU) EndFrame(masterClock uint64) {
	elapsed := int64(masterClock) - apu.frameStartTime
	apu.pulseResampler.EndFrame(elapsed)
	apu.tndResampler.EndFrame(elapsed)
	apu.frameStartTime = int64(masterClock)
}

// ReadSamples sums the two band-limited channels into mono PCM.
func (apu *APU) ReadSamples(buf []int16, n int) int {
	pulseBuf := make([]int16, n)
	tndBuf := make([]int16, n)
	pulseN := apu.pulseResampler.ReadSamples(pulseBuf, n)
	tndN := apu.tndResampler.ReadSamples(tndBuf, n)
	count := pulseN
	if tndN > count {
		count = tndN
	}
	for i := 0; i < count && i < len(buf); i++ {
		sum := int32(pulseBuf[i]) + int32(tndBuf[i])
		if sum > 32767 {
			sum = 32767
		} else if sum < -32768 {
			sum = -32768
		}
		buf[i] = int16(sum)
	}
	return count
}

// WriteRegister writes to an APU register.
func (apu *APU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x4000:
		apu.writePulseControl(&apu.pulse1, value)
	case 0x4001:
		apu.writePulseSweep(&apu.pulse1, value)
	case 0x4002:
		apu.writePulseTimerLow(&apu.pulse1, value)
	case 0x4003:
		apu.writePulseTimerHigh(&apu.pulse1, value)

	case 0x4004:
		apu.writePulseControl(&apu.pulse2, value)
	case 0x4005:
		apu.writePulseSweep(&apu.pulse2, value)
	case 0x4006:
		apu.writePulseTimerLow(&apu.pulse2, value)
	case 0x4007:
		apu.writePulseTimerHigh(&apu.pulse2, value)

	case 0x4008:
		apu.writeTriangleControl(value)
	case 0x400A:
		apu.writeTriangleTimerLow(value)
	case 0x400B:
		apu.writeTriangleTimerHigh(value)

	case 0x400C:
		apu.writeNoiseControl(value)
	case 0x400E:
		apu.writeNoisePeriod(value)
	case 0x400F:
		apu.writeNoiseLength(value)

	case 0x4015:
		apu.writeChannelEnable(value)
	case 0x4017:
		apu.writeFrameCounter(value)
	}
}

// ReadStatus reads the APU status register ($4015).
func (apu *APU) ReadStatus() uint8 {
	status := uint8(0)

	if apu.pulse1.lengthCounter > 0 {
		status |= 0x01
	}
	if apu.pulse2.lengthCounter > 0 {
		status |= 0x02
	}
	if apu.triangle.lengthCounter > 0 {
		status |= 0x04
	}
	if apu.noise.lengthCounter > 0 {
		status |= 0x08
	}
	if apu.frameIRQFlag {
		status |= 0x40
	}

	apu.frameIRQFlag = false
	return status
}

var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6,
	160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 8, 48, 6, 96, 4,
	192, 2, 72, 16, 28, 32, 52, 2,
}

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var triangleTable = [32]uint8{
	15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
}

var noisePeriodTable = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160,
	202, 254, 380, 508, 762, 1016, 2034, 4068,
}

func (apu *APU) writePulseControl(pulse *PulseChannel, value uint8) {
	pulse.dutyCycle = (value >> 6) & 0x03
	pulse.envelopeLoop = (value & 0x20) != 0
	pulse.lengthHalt = pulse.envelopeLoop
	pulse.envelopeDisable = (value & 0x10) != 0
	pulse.volume = value & 0x0F
	pulse.envelopeStart = true
}

func (apu *APU) writePulseSweep(pulse *PulseChannel, value uint8) {
	pulse.sweepEnable = (value & 0x80) != 0
	pulse.sweepPeriod = (value >> 4) & 0x07
	pulse.sweepNegate = (value & 0x08) != 0
	pulse.sweepShift = value & 0x07
	pulse.sweepReload = true
}

func (apu *APU) writePulseTimerLow(pulse *PulseChannel, value uint8) {
	pulse.timer = (pulse.timer & 0xFF00) | uint16(value)
}

func (apu *APU) writePulseTimerHigh(pulse *PulseChannel, value uint8) {
	pulse.timer = (pulse.timer & 0x00FF) | (uint16(value&0x07) << 8)
	pulse.lengthCounter = lengthTable[(value>>3)&0x1F]
	pulse.envelopeStart = true
	pulse.dutyIndex = 0
}

func (apu *APU) stepPulseTimer(pulse *PulseChannel) {
	if pulse.timerCounter == 0 {
		pulse.timerCounter = pulse.timer
		pulse.sequencerPos = (pulse.sequencerPos + 1) & 0x07
	} else {
		pulse.timerCounter--
	}
}

func (apu *APU) clockPulseEnvelope(pulse *PulseChannel) {
	if pulse.envelopeStart {
		pulse.envelopeStart = false
		pulse.envelopeCounter = 15
		pulse.envelopeDivider = pulse.volume
	} else if pulse.envelopeDivider == 0 {
		pulse.envelopeDivider = pulse.volume
		if pulse.envelopeCounter > 0 {
			pulse.envelopeCounter--
		} else if pulse.envelopeLoop {
			pulse.envelopeCounter = 15
		}
	} else {
		pulse.envelopeDivider--
	}
}

func (apu *APU) clockPulseLength(pulse *PulseChannel) {
	if !pulse.lengthHalt && pulse.lengthCounter > 0 {
		pulse.lengthCounter--
	}
}

func (apu *APU) clockPulseSweep(pulse *PulseChannel, isPulse1 bool) {
	if pulse.sweepCounter == 0 && pulse.sweepEnable && pulse.sweepShift > 0 {
		changeAmount := pulse.timer >> pulse.sweepShift
		if pulse.sweepNegate {
			if isPulse1 {
				pulse.timer = pulse.timer - changeAmount - 1
			} else {
				pulse.timer = pulse.timer - changeAmount
			}
		} else {
			pulse.timer = pulse.timer + changeAmount
		}
	}

	if pulse.sweepCounter == 0 || pulse.sweepReload {
		pulse.sweepCounter = pulse.sweepPeriod
		pulse.sweepReload = false
	} else {
		pulse.sweepCounter--
	}
}

func (apu *APU) getPulseOutput(pulse *PulseChannel) uint8 {
	if pulse.lengthCounter == 0 || pulse.timer < 8 || pulse.timer > 0x7FF {
		return 0
	}
	if dutyTable[pulse.dutyCycle][pulse.sequencerPos] == 0 {
		return 0
	}
	if pulse.envelopeDisable {
		return pulse.volume
	}
	return pulse.envelopeCounter
}

func (apu *APU) writeTriangleControl(value uint8) {
	apu.triangle.lengthCounterHalt = (value & 0x80) != 0
	apu.triangle.linearCounterLoad = value & 0x7F
	apu.triangle.linearCounterReload = true
}

func (apu *APU) writeTriangleTimerLow(value uint8) {
	apu.triangle.timer = (apu.triangle.timer & 0xFF00) | uint16(value)
}

func (apu *APU) writeTriangleTimerHigh(value uint8) {
	apu.triangle.timer = (apu.triangle.timer & 0x00FF) | (uint16(value&0x07) << 8)
	apu.triangle.lengthCounter = lengthTable[(value>>3)&0x1F]
	apu.triangle.linearCounterReload = true
}

func (apu *APU) stepTriangleTimer(triangle *TriangleChannel) {
	if triangle.timerCounter == 0 {
		triangle.timerCounter = triangle.timer
		if triangle.lengthCounter > 0 && triangle.linearCounter > 0 {
			triangle.sequencerPos = (triangle.sequencerPos + 1) & 0x1F
		}
	} else {
		triangle.timerCounter--
	}
}

func (apu *APU) clockTriangleLinear(triangle *TriangleChannel) {
	if triangle.linearCounterReload {
		triangle.linearCounter = triangle.linearCounterLoad
	} else if triangle.linearCounter > 0 {
		triangle.linearCounter--
	}
	if !triangle.lengthCounterHalt {
		triangle.linearCounterReload = false
	}
}

func (apu *APU) clockTriangleLength(triangle *TriangleChannel) {
	if !triangle.lengthCounterHalt && triangle.lengthCounter > 0 {
		triangle.lengthCounter--
	}
}

func (apu *APU) getTriangleOutput(triangle *TriangleChannel) uint8 {
	if triangle.lengthCounter == 0 || triangle.linearCounter == 0 || triangle.timer < 2 {
		return 0
	}
	return triangleTable[triangle.sequencerPos]
}

func (apu *APU) writeNoiseControl(value uint8) {
	apu.noise.envelopeLoop = (value & 0x20) != 0
	apu.noise.lengthHalt = apu.noise.envelopeLoop
	apu.noise.envelopeDisable = (value & 0x10) != 0
	apu.noise.volume = value & 0x0F
	apu.noise.envelopeStart = true
}

func (apu *APU) writeNoisePeriod(value uint8) {
	apu.noise.mode = (value & 0x80) != 0
	apu.noise.periodIndex = value & 0x0F
}

func (apu *APU) writeNoiseLength(value uint8) {
	apu.noise.lengthCounter = lengthTable[(value>>3)&0x1F]
	apu.noise.envelopeStart = true
}

func (apu *APU) stepNoiseTimer(noise *NoiseChannel) {
	if noise.timerCounter == 0 {
		noise.timerCounter = noisePeriodTable[noise.periodIndex]

		feedback := noise.shiftRegister & 0x01
		if noise.mode {
			feedback ^= (noise.shiftRegister >> 6) & 0x01
		} else {
			feedback ^= (noise.shiftRegister >> 1) & 0x01
		}
		noise.shiftRegister = (noise.shiftRegister >> 1) | (feedback << 14)
	} else {
		noise.timerCounter--
	}
}

func (apu *APU) clockNoiseEnvelope(noise *NoiseChannel) {
	if noise.envelopeStart {
		noise.envelopeStart = false
		noise.envelopeCounter = 15
		noise.envelopeDivider = noise.volume
	} else if noise.envelopeDivider == 0 {
		noise.envelopeDivider = noise.volume
		if noise.envelopeCounter > 0 {
			noise.envelopeCounter--
		} else if noise.envelopeLoop {
			noise.envelopeCounter = 15
		}
	} else {
		noise.envelopeDivider--
	}
}

func (apu *APU) clockNoiseLength(noise *NoiseChannel) {
	if !noise.lengthHalt && noise.lengthCounter > 0 {
		noise.lengthCounter--
	}
}

func (apu *APU) getNoiseOutput(noise *NoiseChannel) uint8 {
	if noise.lengthCounter == 0 || (noise.shiftRegister&0x01) != 0 {
		return 0
	}
	if noise.envelopeDisable {
		return noise.volume
	}
	return noise.envelopeCounter
}

func (apu *APU) writeChannelEnable(value uint8) {
	apu.channelEnable[0] = (value & 0x01) != 0
	apu.channelEnable[1] = (value & 0x02) != 0
	apu.channelEnable[2] = (value & 0x04) != 0
	apu.channelEnable[3] = (value & 0x08) != 0

	if !apu.channelEnable[0] {
		apu.pulse1.lengthCounter = 0
	}
	if !apu.channelEnable[1] {
		apu.pulse2.lengthCounter = 0
	}
	if !apu.channelEnable[2] {
		apu.triangle.lengthCounter = 0
	}
	if !apu.channelEnable[3] {
		apu.noise.lengthCounter = 0
	}
}

func (apu *APU) writeFrameCounter(value uint8) {
	apu.frameMode = (value & 0x80) != 0
	apu.frameIRQEnable = (value & 0x40) == 0

	if !apu.frameIRQEnable {
		apu.frameIRQFlag = false
	}

	apu.frameCounter = 0
	apu.frameCounterStep = 0

	if apu.frameMode {
		apu.clockEnvelopeAndLinear()
		apu.clockLengthAndSweep()
	}
}

// GetFrameIRQ returns the current frame counter IRQ flag.
func (apu *APU) GetFrameIRQ() bool {
	return apu.frameIRQFlag
}

// IsChannelEnabled returns whether a channel (0=pulse1, 1=pulse2,
// 2=triangle, 3=noise) is enabled.
func (apu *APU) IsChannelEnabled(channel int) bool {
	if channel < 0 || channel >= len(apu.channelEnable) {
		return false
	}
	return apu.channelEnable[channel]
}
