package graphics

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gones/internal/bus"
	"gones/internal/input"
)

const (
	sampleRate  = 44100
	frameWidth  = 256
	frameHeight = 224
)

// EbitenBackend hosts a Console inside an interactive ebiten window: it
// owns the audio player, the keyboard-to-controller mapping, and the
// ebiten.Image the console paints into every frame.
type EbitenBackend struct {
	console *bus.Console
	cfg     Config
	keys    Keys

	frameMu  sync.Mutex
	frameBuf []byte
	img      *ebiten.Image

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	reader      *consoleAudioReader

	paused bool
}

// NewEbitenBackend builds an interactive backend around console, using cfg
// for window presentation and keys for the keyboard-to-button mapping.
func NewEbitenBackend(console *bus.Console, cfg Config, keys Keys) *EbitenBackend {
	b := &EbitenBackend{
		console:  console,
		cfg:      cfg,
		keys:     keys,
		frameBuf: make([]byte, frameWidth*frameHeight*4),
		img:      ebiten.NewImage(frameWidth, frameHeight),
	}

	b.audioCtx = audio.NewContext(sampleRate)
	b.reader = &consoleAudioReader{console: console, frameBuf: b.frameBuf, frameMu: &b.frameMu}

	player, err := b.audioCtx.NewPlayer(b.reader)
	if err == nil {
		b.audioPlayer = player
		b.audioPlayer.Play()
	}

	return b
}

// Run opens the window and blocks until the user closes it.
func (b *EbitenBackend) Run() error {
	ebiten.SetWindowSize(b.cfg.WindowWidth, b.cfg.WindowHeight)
	ebiten.SetWindowTitle(b.cfg.WindowTitle)
	ebiten.SetVsyncEnabled(b.cfg.VSync)
	return ebiten.RunGame(b)
}

// Update polls the keyboard and routes the result to both controller ports.
// Audio, video, and emulation advancement all happen inside the audio
// player's PCM pull (consoleAudioReader.Read), not here: the audio clock
// is the console's master clock, and ebiten calls Update at the display's
// refresh rate only to drive input and the paused/resumed state.
func (b *EbitenBackend) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		b.paused = !b.paused
	}
	if b.paused {
		return nil
	}

	p1, p2 := pollButtons(b.keys.Player1), pollButtons(b.keys.Player2)
	b.frameMu.Lock()
	b.console.SetInput1(p1)
	b.console.SetInput2(p2)
	b.frameMu.Unlock()
	return nil
}

// Draw blits the console's most recently painted frame onto the screen.
func (b *EbitenBackend) Draw(screen *ebiten.Image) {
	b.frameMu.Lock()
	b.img.WritePixels(b.frameBuf)
	b.frameMu.Unlock()
	screen.DrawImage(b.img, nil)
	if b.paused {
		ebitenutil.DebugPrint(screen, "PAUSED")
	}
}

// Layout reports the console's cropped 256x224 output resolution.
func (b *EbitenBackend) Layout(outsideWidth, outsideHeight int) (int, int) {
	return frameWidth, frameHeight
}

// pollButtons reads the current keyboard state and packs it into the
// input package's button bitmask using the given port's key mapping.
func pollButtons(m KeyMapping) uint8 {
	var b uint8
	set := func(bit input.Button, name string) {
		if ebiten.IsKeyPressed(keyByNameOr(name, ebiten.KeyMax)) {
			b |= uint8(bit)
		}
	}
	set(input.ButtonA, m.A)
	set(input.ButtonB, m.B)
	set(input.ButtonSelect, m.Select)
	set(input.ButtonStart, m.Start)
	set(input.ButtonUp, m.Up)
	set(input.ButtonDown, m.Down)
	set(input.ButtonLeft, m.Left)
	set(input.ButtonRight, m.Right)
	return b
}

// consoleAudioReader adapts Console.FillAudio to io.Reader, the shape
// ebiten's audio.Player expects its PCM source in: every Read pulls
// exactly as much emulation forward as the requested byte count demands
// and leaves the console's most recent video frame in frameBuf. ebiten
// calls Read from its own audio goroutine, concurrently with Update and
// Draw on the game loop goroutine, so frameBuf and the console's
// controller state are guarded by frameMu.
type consoleAudioReader struct {
	console  *bus.Console
	frameBuf []byte
	frameMu  *sync.Mutex
	scratch  []int16
}

// Read fills p with interleaved stereo 16-bit PCM, the format
// ebiten/v2/audio.Context.NewPlayer expects of its source. The console's
// APU is mono, so each sample is duplicated across both channels.
func (r *consoleAudioReader) Read(p []byte) (int, error) {
	const bytesPerStereoFrame = 4 // 2 channels * 2 bytes
	nSamples := len(p) / bytesPerStereoFrame
	if nSamples == 0 {
		return 0, nil
	}
	if cap(r.scratch) < nSamples {
		r.scratch = make([]int16, nSamples)
	}
	samples := r.scratch[:nSamples]

	r.frameMu.Lock()
	r.console.FillAudio(samples, nSamples, r.frameBuf)
	r.frameMu.Unlock()

	for i, s := range samples {
		u := uint16(s)
		lo, hi := byte(u), byte(u>>8)
		p[i*4+0] = lo
		p[i*4+1] = hi
		p[i*4+2] = lo
		p[i*4+3] = hi
	}
	return nSamples * bytesPerStereoFrame, nil
}
