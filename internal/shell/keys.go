package shell

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the sign-in screen.
type KeyMap struct {
	// Submit runs the action of the focused field, subject to the same gate as its button.
	Submit key.Binding
	Next   key.Binding
	Prev   key.Binding
	// OptionNext and OptionPrev cycle the focused selection field.
	OptionNext key.Binding
	OptionPrev key.Binding
	// Restart resets the session to enter another phone number.
	Restart key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab/↓", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab/↑", "previous field"),
	),
	OptionNext: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next option"),
	),
	OptionPrev: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous option"),
	),
	Restart: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "start over"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "leave"),
	),
}
