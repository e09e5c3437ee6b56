package graphics

import "github.com/hajimehoshi/ebiten/v2"

// keyByName resolves one of the names used in a Config's KeyMapping to an
// ebiten key. Unrecognized names resolve to KeyMax's zero value, which
// ebiten.IsKeyPressed always reports as false.
var keyByName = map[string]ebiten.Key{
	"A": ebiten.KeyA, "B": ebiten.KeyB, "C": ebiten.KeyC, "D": ebiten.KeyD,
	"E": ebiten.KeyE, "F": ebiten.KeyF, "G": ebiten.KeyG, "H": ebiten.KeyH,
	"I": ebiten.KeyI, "J": ebiten.KeyJ, "K": ebiten.KeyK, "L": ebiten.KeyL,
	"M": ebiten.KeyM, "N": ebiten.KeyN, "O": ebiten.KeyO, "P": ebiten.KeyP,
	"Q": ebiten.KeyQ, "R": ebiten.KeyR, "S": ebiten.KeyS, "T": ebiten.KeyT,
	"U": ebiten.KeyU, "V": ebiten.KeyV, "W": ebiten.KeyW, "X": ebiten.KeyX,
	"Y": ebiten.KeyY, "Z": ebiten.KeyZ,
	"Up": ebiten.KeyArrowUp, "Down": ebiten.KeyArrowDown,
	"Left": ebiten.KeyArrowLeft, "Right": ebiten.KeyArrowRight,
	"Return": ebiten.KeyEnter, "Space": ebiten.KeySpace,
	"RShift": ebiten.KeyShiftRight, "LShift": ebiten.KeyShiftLeft,
	"RCtrl": ebiten.KeyControlRight, "LCtrl": ebiten.KeyControlLeft,
	"Escape": ebiten.KeyEscape, "Tab": ebiten.KeyTab,
}

func keyByNameOr(name string, fallback ebiten.Key) ebiten.Key {
	if k, ok := keyByName[name]; ok {
		return k
	}
	return fallback
}
