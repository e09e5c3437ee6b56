// Package input implements standard gamepad handling for the console,
// modeled as the real hardware's 8-bit parallel-load shift register.
package input

// Button represents a standard gamepad button.
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Controller models one gamepad port's shift register.
type Controller struct {
	buttons uint8

	shiftRegister uint8
	strobe        bool

	buttonSnapshot uint8
	bitPosition    uint8
}

// New creates a Controller with no buttons pressed.
func New() *Controller {
	return &Controller{}
}

// SetButton sets or clears a single button.
func (c *Controller) SetButton(button Button, pressed bool) {
	if pressed {
		c.buttons |= uint8(button)
	} else {
		c.buttons &^= uint8(button)
	}
}

// SetButtons replaces the full button state from a packed bitmask, one
// bit per button in A/B/Select/Start/Up/Down/Left/Right order.
func (c *Controller) SetButtons(buttons uint8) {
	c.buttons = buttons
}

// IsPressed reports whether a button is currently held.
func (c *Controller) IsPressed(button Button) bool {
	return (c.buttons & uint8(button)) != 0
}

// Write handles a write to the controller's strobe register ($4016).
// While strobe is high, button A is continuously reloaded into bit 0;
// the falling edge latches the full button state for the 8-bit read
// sequence that follows.
func (c *Controller) Write(value uint8) {
	wasStrobe := c.strobe
	c.strobe = (value & 1) != 0

	if c.strobe {
		c.buttonSnapshot = c.buttons
		c.shiftRegister = c.buttons
		c.bitPosition = 0
	} else if wasStrobe {
		c.buttonSnapshot = c.buttons
		c.shiftRegister = c.buttonSnapshot
		c.bitPosition = 0
	}
}

// Read handles a read from the controller's data register ($4016/$4017).
func (c *Controller) Read() uint8 {
	if c.strobe {
		c.bitPosition = 0
		return c.buttons & 1
	}

	if c.bitPosition < 8 {
		bit := c.shiftRegister & 1
		c.shiftRegister >>= 1
		c.bitPosition++
		return bit
	}

	c.bitPosition++
	return 1
}

// Reset clears all controller state.
func (c *Controller) Reset() {
	*c = Controller{}
}

// InputState holds both gamepad ports.
type InputState struct {
	Controller1 *Controller
	Controller2 *Controller
}

// NewInputState creates an InputState with two fresh controllers.
func NewInputState() *InputState {
	return &InputState{
		Controller1: New(),
		Controller2: New(),
	}
}

// Reset resets both controllers.
func (is *InputState) Reset() {
	is.Controller1.Reset()
	is.Controller2.Reset()
}

// SetInput1 sets controller 1's full button state.
func (is *InputState) SetInput1(buttons uint8) {
	is.Controller1.SetButtons(buttons)
}

// SetInput2 sets controller 2's full button state.
func (is *InputState) SetInput2(buttons uint8) {
	is.Controller2.SetButtons(buttons)
}

// Read reads from a controller port.
func (is *InputState) Read(address uint16) uint8 {
	switch address {
	case 0x4016:
		return is.Controller1.Read()
	case 0x4017:
		return is.Controller2.Read() | 0x40 // NES open-bus bit 6 convention
	default:
		return 0
	}
}

// Write writes to the shared controller strobe port. Both controllers
// observe every $4016 write, matching the real hardware's wiring.
func (is *InputState) Write(address uint16, value uint8) {
	if address == 0x4016 {
		is.Controller1.Write(value)
		is.Controller2.Write(value)
	}
}
