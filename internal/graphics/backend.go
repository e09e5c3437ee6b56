// Package graphics hosts the console inside a presentation backend: an
// interactive ebiten window for normal play, or a headless runner for
// tests and frame-dump tooling.
package graphics

// Config configures a presentation backend.
type Config struct {
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Scale        int
	VSync        bool
}

// KeyMapping names the keyboard key bound to each button of one
// controller port. Key names are resolved to ebiten keys by keyByName.
type KeyMapping struct {
	Up, Down, Left, Right string
	A, B, Start, Select   string
}

// Keys names the keyboard mapping for both controller ports.
type Keys struct {
	Player1 KeyMapping
	Player2 KeyMapping
}
