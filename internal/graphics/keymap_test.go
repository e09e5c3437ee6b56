package graphics

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestKeyByNameOr_KnownNameResolves(t *testing.T) {
	if k := keyByNameOr("W", ebiten.KeyMax); k != ebiten.KeyW {
		t.Errorf("keyByNameOr(%q) = %v, want %v", "W", k, ebiten.KeyW)
	}
	if k := keyByNameOr("Return", ebiten.KeyMax); k != ebiten.KeyEnter {
		t.Errorf("keyByNameOr(%q) = %v, want %v", "Return", k, ebiten.KeyEnter)
	}
	if k := keyByNameOr("RShift", ebiten.KeyMax); k != ebiten.KeyShiftRight {
		t.Errorf("keyByNameOr(%q) = %v, want %v", "RShift", k, ebiten.KeyShiftRight)
	}
}

func TestKeyByNameOr_UnknownNameFallsBack(t *testing.T) {
	if k := keyByNameOr("NotAKey", ebiten.KeyMax); k != ebiten.KeyMax {
		t.Errorf("keyByNameOr(unknown) = %v, want fallback %v", k, ebiten.KeyMax)
	}
}
