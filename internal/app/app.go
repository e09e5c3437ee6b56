// Package app wires configuration, ROM loading, and presentation together
// into a runnable NES emulator.
package app

import (
	"errors"
	"fmt"

	"gones/internal/bus"
	"gones/internal/graphics"
)

// Application is the top-level emulator: a loaded Console plus whichever
// presentation backend is driving it.
type Application struct {
	config  *Config
	console *bus.Console

	headless bool
	romPath  string

	ebiten          *graphics.EbitenBackend
	headlessBackend *graphics.HeadlessBackend
}

// ApplicationError wraps a failure in a specific application component.
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("app: %s: %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// NewApplication creates an interactive application, loading configuration
// from configPath if given (an empty path uses defaults).
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates an application in either interactive or
// headless mode.
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	a := &Application{
		config:   NewConfig(),
		headless: headless,
	}

	if configPath != "" {
		if err := a.config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}

	return a, nil
}

// LoadROM loads a ROM file and builds the backend that will drive it.
func (a *Application) LoadROM(romPath string) error {
	console, err := bus.LoadFromFile(romPath)
	if err != nil {
		return &ApplicationError{Component: "cartridge", Operation: "load ROM", Err: err}
	}

	a.console = console
	a.romPath = romPath

	if a.headless {
		a.headlessBackend = graphics.NewHeadlessBackend(console, a.config.Audio.BufferSize)
		return nil
	}

	w, h := a.config.GetWindowResolution()
	a.ebiten = graphics.NewEbitenBackend(console, graphics.Config{
		WindowTitle:  fmt.Sprintf("gones - %s", romPath),
		WindowWidth:  w,
		WindowHeight: h,
		Scale:        a.config.Window.Scale,
		VSync:        a.config.Video.VSync,
	}, graphics.Keys{
		Player1: toGraphicsKeyMapping(a.config.Input.Player1Keys),
		Player2: toGraphicsKeyMapping(a.config.Input.Player2Keys),
	})

	return nil
}

// Run starts the main loop, blocking until the window is closed (or, in
// headless mode, this method should not be used; call RunHeadlessFrames
// instead).
func (a *Application) Run() error {
	if a.console == nil {
		return errors.New("no ROM loaded")
	}
	if a.headless {
		return errors.New("Run is not valid in headless mode; use RunHeadlessFrames")
	}
	return a.ebiten.Run()
}

// RunHeadlessFrames advances a headless application by nFrames video
// frames, invoking onFrame after each one.
func (a *Application) RunHeadlessFrames(nFrames int, onFrame func(frame []byte)) error {
	if a.headlessBackend == nil {
		return errors.New("no ROM loaded in headless mode")
	}
	a.headlessBackend.RunFrames(nFrames, onFrame)
	return nil
}

// DumpPNG advances the console by frameNumber more frames and writes the
// last of them as a PNG, for headless regression testing of rendering
// output.
func (a *Application) DumpPNG(frameNumber int, path string) error {
	if a.headlessBackend == nil {
		return errors.New("no ROM loaded in headless mode")
	}
	return a.headlessBackend.DumpPNG(frameNumber, path)
}

// Reset resets the running console without reloading the cartridge.
func (a *Application) Reset() {
	if a.console != nil {
		a.console.Reset()
	}
}

// GetConfig returns the application's configuration.
func (a *Application) GetConfig() *Config {
	return a.config
}

// GetROMPath returns the currently loaded ROM's path.
func (a *Application) GetROMPath() string {
	return a.romPath
}

// GetConsole returns the running console, or nil if no ROM is loaded.
func (a *Application) GetConsole() *bus.Console {
	return a.console
}

// toGraphicsKeyMapping converts a config KeyMapping to the presentation
// layer's own mirror type, keeping internal/graphics free of a dependency
// on internal/app (which itself depends on internal/graphics).
func toGraphicsKeyMapping(m KeyMapping) graphics.KeyMapping {
	return graphics.KeyMapping{
		Up: m.Up, Down: m.Down, Left: m.Left, Right: m.Right,
		A: m.A, B: m.B, Start: m.Start, Select: m.Select,
	}
}

// Cleanup releases the application's resources.
func (a *Application) Cleanup() error {
	if a.console != nil {
		return a.console.Close()
	}
	return nil
}
