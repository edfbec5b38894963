package core

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_ENTER     KeyCode = 0x0D
	KEY_TAB       KeyCode = 0x09
	KEY_SHIFT     KeyCode = 0x10
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_DELETE    KeyCode = 0x2E
	KEY_A         KeyCode = 0x41
	KEY_E         KeyCode = 0x45
	KEY_L         KeyCode = 0x4C
	KEY_O         KeyCode = 0x4F
	KEY_R         KeyCode = 0x52
	KEY_S         KeyCode = 0x53

	KEYS_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	Keys [KEYS_MAX_KEYS]bool
}

type mouseState struct {
	X       uint16
	Y       uint16
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// InputState tracks keyboard and mouse state for the current and previous frame
// and fires the matching events on change.
type InputState struct {
	events           *EventSystem
	KeyboardCurrent  keyboardState
	KeyboardPrevious keyboardState
	MouseCurrent     mouseState
	MousePrevious    mouseState
}

func NewInputState(events *EventSystem) *InputState {
	return &InputState{events: events}
}

// Update copies the current state into the previous one. Call once per frame.
func (is *InputState) Update() {
	is.KeyboardPrevious = is.KeyboardCurrent
	is.MousePrevious = is.MouseCurrent
}

// keyboard input
func (is *InputState) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && is.KeyboardCurrent.Keys[key]
}

func (is *InputState) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && is.KeyboardPrevious.Keys[key]
}

func (is *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS {
		return
	}
	// Only handle this if the state actually changed.
	if is.KeyboardCurrent.Keys[key] != pressed {
		is.KeyboardCurrent.Keys[key] = pressed

		code := EVENT_CODE_KEY_RELEASED
		if pressed {
			code = EVENT_CODE_KEY_PRESSED
		}
		is.fire(EventContext{Type: code, Data: &KeyEvent{KeyCode: key}})
	}
}

// mouse input
func (is *InputState) IsButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && is.MouseCurrent.Buttons[button]
}

func (is *InputState) WasButtonDown(button Button) bool {
	return button < BUTTON_MAX_BUTTONS && is.MousePrevious.Buttons[button]
}

func (is *InputState) MousePosition() (int32, int32) {
	return int32(is.MouseCurrent.X), int32(is.MouseCurrent.Y)
}

func (is *InputState) PreviousMousePosition() (int32, int32) {
	return int32(is.MousePrevious.X), int32(is.MousePrevious.Y)
}

func (is *InputState) ProcessButton(button Button, pressed bool) {
	if button >= BUTTON_MAX_BUTTONS {
		return
	}
	if is.MouseCurrent.Buttons[button] != pressed {
		is.MouseCurrent.Buttons[button] = pressed

		code := EVENT_CODE_BUTTON_RELEASED
		if pressed {
			code = EVENT_CODE_BUTTON_PRESSED
		}
		is.fire(EventContext{
			Type: code,
			Data: &MouseEvent{
				Button: button,
				PosX:   is.MouseCurrent.X,
				PosY:   is.MouseCurrent.Y,
			},
		})
	}
}

func (is *InputState) ProcessMouseMove(x uint16, y uint16) {
	// Only process if actually different
	if is.MouseCurrent.X != x || is.MouseCurrent.Y != y {
		is.MouseCurrent.X = x
		is.MouseCurrent.Y = y

		is.fire(EventContext{
			Type: EVENT_CODE_MOUSE_MOVED,
			Data: &MouseEvent{PosX: x, PosY: y},
		})
	}
}

func (is *InputState) ProcessMouseWheel(zDelta int8) {
	is.fire(EventContext{
		Type: EVENT_CODE_MOUSE_WHEEL,
		Data: &MouseEvent{Scroll: zDelta},
	})
}

func (is *InputState) fire(ctx EventContext) {
	if is.events != nil {
		is.events.Fire(ctx, is)
	}
}
