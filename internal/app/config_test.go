package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig_ProducesPlayableDefaults(t *testing.T) {
	c := NewConfig()

	if c.Window.Scale <= 0 {
		t.Errorf("Window.Scale = %d, want > 0", c.Window.Scale)
	}
	if c.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", c.Audio.SampleRate)
	}
	if c.Input.Player1Keys.A == "" {
		t.Error("Player1Keys.A is unset")
	}
}

func TestGetNESResolution_ReturnsCroppedFrame(t *testing.T) {
	c := NewConfig()
	w, h := c.GetNESResolution()
	if w != 256 || h != 224 {
		t.Errorf("GetNESResolution() = %dx%d, want 256x224", w, h)
	}
}

func TestGetWindowResolution_ScalesNESResolution(t *testing.T) {
	c := NewConfig()
	c.Window.Scale = 3
	w, h := c.GetWindowResolution()
	if w != 256*3 || h != 224*3 {
		t.Errorf("GetWindowResolution() = %dx%d, want %dx%d", w, h, 256*3, 224*3)
	}
}

func TestLoadFromFile_MissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gones.json")

	c := NewConfig()
	if err := c.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected LoadFromFile to create %s: %v", path, err)
	}
	if !c.IsLoaded() {
		t.Error("expected IsLoaded() to be true after LoadFromFile")
	}
}

func TestLoadFromFile_RoundTripsSavedValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gones.json")

	c := NewConfig()
	c.Window.Scale = 4
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded := NewConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Window.Scale != 4 {
		t.Errorf("Window.Scale = %d, want 4", loaded.Window.Scale)
	}
}

func TestValidate_ClampsInvalidValues(t *testing.T) {
	c := NewConfig()
	c.Window.Scale = 0
	c.Audio.SampleRate = 0
	c.Audio.BufferSize = 0
	c.Audio.Volume = 2.0

	if err := c.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if c.Window.Scale != 1 {
		t.Errorf("Window.Scale = %d, want 1", c.Window.Scale)
	}
	if c.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", c.Audio.SampleRate)
	}
	if c.Audio.BufferSize != 1024 {
		t.Errorf("Audio.BufferSize = %d, want 1024", c.Audio.BufferSize)
	}
	if c.Audio.Volume != 0.8 {
		t.Errorf("Audio.Volume = %.2f, want 0.8", c.Audio.Volume)
	}
}

func TestValidate_RejectsZeroWindowDimensions(t *testing.T) {
	c := NewConfig()
	c.Window.Width = 0
	if err := c.validate(); err == nil {
		t.Error("expected an error for a zero window width")
	}
}
