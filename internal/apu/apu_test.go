package apu

import "testing"

func TestPulseChannelSilentWhenLengthCounterZero(t *testing.T) {
	apu := New(44100)
	apu.channelEnable[0] = true
	apu.writePulseControl(&apu.pulse1, 0x3F) // constant volume 15
	apu.pulse1.timer = 100
	apu.pulse1.lengthCounter = 0

	if out := apu.getPulseOutput(&apu.pulse1); out != 0 {
		t.Errorf("pulse output = %d, want 0 when length counter is 0", out)
	}
}

func TestPulseTimerBelowEightIsMuted(t *testing.T) {
	apu := New(44100)
	apu.writePulseControl(&apu.pulse1, 0x1F) // constant volume 15
	apu.pulse1.lengthCounter = 10
	apu.pulse1.sequencerPos = 1 // duty table 0 is "on" at position 1
	apu.pulse1.timer = 4        // below the ultrasonic cutoff

	if out := apu.getPulseOutput(&apu.pulse1); out != 0 {
		t.Errorf("pulse output = %d, want 0 for timer < 8", out)
	}
}

func TestFrameCounterFourStepFiresIRQ(t *testing.T) {
	apu := New(44100)
	apu.writeFrameCounter(0x00) // 4-step mode, IRQ enabled
	for i := 0; i < 29830; i++ {
		apu.stepFrameCounter()
	}
	if !apu.frameIRQFlag {
		t.Errorf("frame IRQ flag not set after 29830 frame-counter steps in 4-step mode")
	}
}

func TestReadStatusClearsFrameIRQ(t *testing.T) {
	apu := New(44100)
	apu.frameIRQFlag = true
	if status := apu.ReadStatus(); status&0x40 == 0 {
		t.Fatalf("status = %#02x, want bit 6 set", status)
	}
	if apu.frameIRQFlag {
		t.Errorf("reading $4015 did not clear the frame IRQ flag")
	}
}

func TestMixerZeroInputsProduceZeroLevel(t *testing.T) {
	if pulseLookup(0) != 0 {
		t.Errorf("pulseLookup(0) != 0")
	}
	if tndLookup(0) != 0 {
		t.Errorf("tndLookup(0) != 0")
	}
}

func TestMixAccumulatesDeltasIntoResamplers(t *testing.T) {
	apu := New(44100)
	apu.channelEnable[0] = true
	apu.writePulseControl(&apu.pulse1, 0x1F) // constant volume 15
	apu.pulse1.timer = 100
	apu.pulse1.lengthCounter = 20
	apu.pulse1.sequencerPos = 1 // duty table 0 is "on" at position 1

	apu.mix(0)
	if apu.lastPulseLevel == 0 {
		t.Errorf("expected a non-zero pulse level once a channel is producing sound")
	}
}

func TestClocksNeededScalesWithSampleRate(t *testing.T) {
	apu := New(44100)
	clocks := apu.ClocksNeeded(44100)
	// Roughly one second of CPU clocks at NTSC rate (1789773 Hz).
	if clocks < 1_700_000 || clocks > 1_850_000 {
		t.Errorf("ClocksNeeded(44100) = %d, want roughly 1 second of NTSC CPU clocks", clocks)
	}
}

func TestReadSamplesRespectsEndFrame(t *testing.T) {
	apu := New(44100)
	apu.EndFrame(200)
	out := make([]int16, 10)
	n := apu.ReadSamples(out, 10)
	if n == 0 {
		t.Errorf("expected some samples to be produced within a 200-clock frame")
	}
}
