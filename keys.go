package tmuxtest

import "fmt"

// Key is a tmux key name as understood by send-keys.
type Key string

// Keys for use with Press.
const (
	Enter     Key = "Enter"
	Escape    Key = "Escape"
	Tab       Key = "Tab"
	Backspace Key = "BSpace"
	Delete    Key = "DC"
	Space     Key = "Space"

	Up       Key = "Up"
	Down     Key = "Down"
	Left     Key = "Left"
	Right    Key = "Right"
	Home     Key = "Home"
	End      Key = "End"
	PageUp   Key = "PageUp"
	PageDown Key = "PageDown"
)

// Ctrl returns the key for Ctrl+<char>.
func Ctrl(c byte) Key {
	return Key(fmt.Sprintf("C-%c", c))
}

// Alt returns the key for Alt+<char>.
func Alt(c byte) Key {
	return Key(fmt.Sprintf("M-%c", c))
}

// F returns function key n (F1 through F12).
func F(n int) Key {
	return Key(fmt.Sprintf("F%d", n))
}
