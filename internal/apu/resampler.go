package apu

// Resampler converts a stream of signed amplitude steps, recorded at
// the CPU clock rate, into PCM at an arbitrary host sample rate. Deltas
// are accumulated into a ring buffer indexed by clock time; reading runs
// an integrator across the buffer and emits the running level at each
// output sample's clock position. No band-limiting filter is applied:
// each step lands whole in the first output sample at or after it, so
// the output is the step signal sampled at the host rate.
type Resampler struct {
	clockRate  float64
	sampleRate float64
	rateRatio  float64 // output samples per input clock

	buf      []int32
	writePos int64 // clocks written so far, relative to the current read window

	accum   int32
	readPos float64 // fractional clock position of the next output sample
	endTime int64
}

const resamplerRingClocks = 1 << 18 // comfortably larger than one FillAudio batch

// NewResampler creates a resampler from clockRate input ticks/sec to
// sampleRate output samples/sec.
func NewResampler(clockRate, sampleRate float64) *Resampler {
	return &Resampler{
		clockRate:  clockRate,
		sampleRate: sampleRate,
		rateRatio:  sampleRate / clockRate,
		buf:        make([]int32, resamplerRingClocks),
	}
}

// AddDelta records a step of the given size occurring at clockTime,
// relative to the start of the frame last ended with EndFrame.
func (r *Resampler) AddDelta(clockTime int64, delta int32) {
	r.buf[clockTime%int64(len(r.buf))] += delta
}

// ClocksNeeded returns how many input clocks must elapse to produce at
// least nSamples of output.
func (r *Resampler) ClocksNeeded(nSamples int) int {
	if nSamples <= 0 {
		return 0
	}
	return int(float64(nSamples)/r.rateRatio) + 1
}

// EndFrame marks clockTime as the length of the frame just finished. The
// next ReadSamples drains output up to that point and then rebases the
// read cursor, so the next frame's AddDelta calls are measured from
// clock 0 again.
func (r *Resampler) EndFrame(clockTime int64) {
	r.endTime = clockTime
}

// ReadSamples drains up to len(buf) (capped at n) samples. Each output
// sample integrates every clock delta recorded since the previous output
// sample (not just the delta at the single nearest clock), so the running
// accumulator reflects the full signal rather than 1-in-rateRatio of it.
func (r *Resampler) ReadSamples(buf []int16, n int) int {
	if n > len(buf) {
		n = len(buf)
	}
	produced := 0
	prevClock := int64(r.readPos)
	for produced < n && prevClock < r.endTime {
		r.readPos += 1.0 / r.rateRatio
		curClock := int64(r.readPos)
		if curClock > r.endTime {
			curClock = r.endTime
		}

		for c := prevClock + 1; c <= curClock; c++ {
			idx := c % int64(len(r.buf))
			r.accum += r.buf[idx]
			r.buf[idx] = 0
		}
		prevClock = curClock

		sample := r.accum
		if sample > 32767 {
			sample = 32767
		} else if sample < -32768 {
			sample = -32768
		}
		buf[produced] = int16(sample)
		produced++
	}

	r.readPos -= float64(r.endTime)
	if r.readPos < 0 {
		r.readPos = 0
	}
	r.endTime = 0
	return produced
}
