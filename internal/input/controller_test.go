package input

import "testing"

func TestNew_ShouldCreateControllerWithDefaultState(t *testing.T) {
	controller := New()

	if controller.buttons != 0 {
		t.Errorf("expected initial buttons state 0, got %d", controller.buttons)
	}
	if controller.shiftRegister != 0 {
		t.Errorf("expected initial shift register 0, got %d", controller.shiftRegister)
	}
	if controller.strobe {
		t.Error("expected initial strobe false")
	}
}

func TestSetButton_ShouldUpdateButtonState(t *testing.T) {
	controller := New()

	buttons := []Button{
		ButtonA, ButtonB, ButtonSelect, ButtonStart,
		ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
	}

	for _, button := range buttons {
		controller.SetButton(button, true)
		if !controller.IsPressed(button) {
			t.Errorf("button %d should be pressed after SetButton(true)", button)
		}
		controller.SetButton(button, false)
		if controller.IsPressed(button) {
			t.Errorf("button %d should not be pressed after SetButton(false)", button)
		}
	}
}

func TestSetButton_MultipleButtons_ShouldCombineStates(t *testing.T) {
	controller := New()

	controller.SetButton(ButtonA, true)
	controller.SetButton(ButtonB, true)
	controller.SetButton(ButtonStart, true)

	expected := uint8(ButtonA) | uint8(ButtonB) | uint8(ButtonStart)
	if controller.buttons != expected {
		t.Errorf("expected combined button state %#02x, got %#02x", expected, controller.buttons)
	}
	if controller.IsPressed(ButtonSelect) {
		t.Error("ButtonSelect should not be pressed")
	}
}

func TestSetButtons_ReplacesFullState(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)

	controller.SetButtons(uint8(ButtonUp) | uint8(ButtonDown))

	if controller.IsPressed(ButtonA) {
		t.Error("ButtonA should have been cleared by SetButtons")
	}
	if !controller.IsPressed(ButtonUp) || !controller.IsPressed(ButtonDown) {
		t.Error("Up and Down should be pressed after SetButtons")
	}
}

func TestWrite_StrobeFalse_ShouldNotUpdateShiftRegister(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)
	controller.SetButton(ButtonB, true)

	controller.Write(0x00)

	if controller.strobe {
		t.Error("strobe should be false after writing 0")
	}
	if controller.shiftRegister != 0 {
		t.Errorf("shift register should remain 0, got %d", controller.shiftRegister)
	}
}

func TestWrite_StrobeTrue_ShouldUpdateShiftRegister(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)
	controller.SetButton(ButtonB, true)

	expected := uint8(ButtonA) | uint8(ButtonB)
	controller.Write(0x01)

	if !controller.strobe {
		t.Error("strobe should be true after writing 1")
	}
	if controller.shiftRegister != expected {
		t.Errorf("shift register should be %d, got %d", expected, controller.shiftRegister)
	}
}

func TestWrite_StrobeWithHigherBits_ShouldIgnoreHigherBits(t *testing.T) {
	controller := New()

	controller.Write(0xFF)
	if !controller.strobe {
		t.Error("strobe should be true (bit 0 set)")
	}

	controller.Write(0xFE)
	if controller.strobe {
		t.Error("strobe should be false (bit 0 clear)")
	}
}

func TestRead_StrobeActive_AlwaysReturnsButtonA(t *testing.T) {
	controller := New()

	controller.Write(0x01)
	if v := controller.Read(); v != 0 {
		t.Errorf("expected 0 with ButtonA not pressed, got %#02x", v)
	}

	controller.SetButton(ButtonA, true)
	if v := controller.Read(); v != 1 {
		t.Errorf("expected 1 with ButtonA pressed while strobing, got %#02x", v)
	}
}

func TestRead_StrobeInactive_ShouldShiftRegister(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)
	controller.SetButton(ButtonStart, true)

	controller.Write(0x01)
	controller.Write(0x00)

	expected := []uint8{1, 0, 0, 1, 0, 0, 0, 0}
	for i, want := range expected {
		if got := controller.Read(); got != want {
			t.Errorf("read %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestRead_ExtendedReading_ReturnsOne(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)

	controller.Write(0x01)
	controller.Write(0x00)

	for i := 0; i < 8; i++ {
		controller.Read()
	}

	for i := 0; i < 5; i++ {
		if v := controller.Read(); v != 1 {
			t.Errorf("extended read %d: expected 1, got %d", i, v)
		}
	}
}

func TestRead_ButtonStateChange_DuringStrobe_ShouldUseOriginalState(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)
	controller.Write(0x01)
	controller.Write(0x00)

	value1 := controller.Read() // A, snapshot taken at strobe-low
	controller.SetButton(ButtonB, true)
	value2 := controller.Read() // B, should still reflect the pre-change snapshot
	value3 := controller.Read() // Select, not pressed in the snapshot

	if value1 != 1 {
		t.Errorf("first read: expected 1, got %d", value1)
	}
	if value2 != 0 {
		t.Errorf("second read: expected 0 (snapshot predates the mid-sequence SetButton), got %d", value2)
	}
	if value3 != 0 {
		t.Errorf("third read: expected 0, got %d", value3)
	}
}

func TestReset_ClearsAllState(t *testing.T) {
	controller := New()
	controller.SetButton(ButtonA, true)
	controller.Write(0x01)

	controller.Reset()

	if controller.buttons != 0 || controller.shiftRegister != 0 || controller.strobe {
		t.Error("Reset should clear buttons, shift register, and strobe")
	}
}

func TestNewInputState_CreatesTwoControllers(t *testing.T) {
	is := NewInputState()
	if is.Controller1 == nil || is.Controller2 == nil {
		t.Fatal("expected both controllers to be non-nil")
	}
}

func TestInputState_SetInput_RoutesToCorrectController(t *testing.T) {
	is := NewInputState()
	is.SetInput1(uint8(ButtonA))
	is.SetInput2(uint8(ButtonB))

	if !is.Controller1.IsPressed(ButtonA) {
		t.Error("SetInput1 should set controller 1's buttons")
	}
	if !is.Controller2.IsPressed(ButtonB) {
		t.Error("SetInput2 should set controller 2's buttons")
	}
}

func TestInputState_Read_Port2SetsBit6(t *testing.T) {
	is := NewInputState()
	is.SetInput2(uint8(ButtonA))
	is.Write(0x4016, 0x01)
	is.Write(0x4016, 0x00)

	value := is.Read(0x4017)
	if value != 0x41 {
		t.Errorf("expected 0x41 (bit 6 open-bus convention + ButtonA), got %#02x", value)
	}
}

func TestInputState_Read_UnknownAddressReturnsZero(t *testing.T) {
	is := NewInputState()
	for _, addr := range []uint16{0x4015, 0x4018, 0x5000, 0x0000, 0xFFFF} {
		if v := is.Read(addr); v != 0 {
			t.Errorf("address %#04x: expected 0, got %#02x", addr, v)
		}
	}
}

func TestInputState_Write_BothControllersObserveStrobe(t *testing.T) {
	is := NewInputState()
	is.SetInput1(uint8(ButtonA))
	is.SetInput2(uint8(ButtonB))

	is.Write(0x4016, 0x01)
	is.Write(0x4016, 0x00)

	v1 := is.Read(0x4016)
	v2 := is.Read(0x4017)
	v2b := is.Read(0x4017)

	if v1 != 1 {
		t.Errorf("controller 1 first read: expected 1, got %#02x", v1)
	}
	if v2 != 0x40 {
		t.Errorf("controller 2 first read (A not pressed): expected 0x40, got %#02x", v2)
	}
	if v2b != 0x41 {
		t.Errorf("controller 2 second read (B pressed): expected 0x41, got %#02x", v2b)
	}
}

func TestInputState_Write_Port2IsReadOnly(t *testing.T) {
	is := NewInputState()
	is.SetInput1(uint8(ButtonA))
	is.Write(0x4017, 0x01) // should have no effect; only 0x4016 strobes

	v := is.Read(0x4016)
	if v != 0 {
		t.Errorf("write to 0x4017 should not strobe controller 1, got %#02x", v)
	}
}

func TestInputState_Reset(t *testing.T) {
	is := NewInputState()
	is.SetInput1(uint8(ButtonA))
	is.SetInput2(uint8(ButtonB))

	is.Reset()

	if is.Controller1.buttons != 0 || is.Controller2.buttons != 0 {
		t.Error("Reset should clear both controllers' button state")
	}
}
