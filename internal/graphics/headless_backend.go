package graphics

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"gones/internal/bus"
)

// HeadlessBackend drives a Console without opening a window: it pulls
// audio and video the same way the interactive backend does, but on its
// own loop rather than one paced by ebiten's audio callback. It exists
// for test harnesses and for dumping reference frames from the CLI.
type HeadlessBackend struct {
	console  *bus.Console
	frameBuf []byte
	samples  []int16
}

// NewHeadlessBackend builds a backend around console using the given
// audio chunk size, in samples, for each internal FillAudio pull.
func NewHeadlessBackend(console *bus.Console, chunkSamples int) *HeadlessBackend {
	return &HeadlessBackend{
		console:  console,
		frameBuf: make([]byte, frameWidth*frameHeight*4),
		samples:  make([]int16, chunkSamples),
	}
}

// RunFrames advances the console until nFrames video frames have
// completed, calling onFrame (if non-nil) after each one with the
// cropped RGBA frame buffer. The buffer is reused between calls and must
// not be retained by onFrame past the call.
func (h *HeadlessBackend) RunFrames(nFrames int, onFrame func(frame []byte)) {
	seen := 0
	for seen < nFrames {
		if h.console.FillAudio(h.samples, len(h.samples), h.frameBuf) {
			seen++
			if onFrame != nil {
				onFrame(h.frameBuf)
			}
		}
	}
}

// DumpPNG advances the console by frameNumber more frames and writes the
// last of them to path as a PNG image, for regression-testing rendering
// output without a display.
func (h *HeadlessBackend) DumpPNG(frameNumber int, path string) error {
	var captured []byte
	h.RunFrames(frameNumber, func(frame []byte) {
		captured = append([]byte(nil), frame...)
	})
	if captured == nil {
		return fmt.Errorf("no frame captured")
	}

	img := image.NewRGBA(image.Rect(0, 0, frameWidth, frameHeight))
	copy(img.Pix, captured)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	return png.Encode(f, img)
}
