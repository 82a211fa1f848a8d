package hotkey

import (
	"fmt"
	"strings"

	"golang.design/x/hotkey"
)

// Combo is a parsed shortcut: modifiers plus one key
type Combo struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
}

// modifierSymbols in display order
var modifierSymbols = []struct {
	symbol string
	mod    hotkey.Modifier
}{
	{"⌃", hotkey.ModCtrl},
	{"⌥", hotkey.ModOption},
	{"⇧", hotkey.ModShift},
	{"⌘", hotkey.ModCmd},
}

// Key codes are not contiguous on macOS, so every key is listed explicitly.
var keyNames = map[string]hotkey.Key{
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD,
	"E": hotkey.KeyE, "F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH,
	"I": hotkey.KeyI, "J": hotkey.KeyJ, "K": hotkey.KeyK, "L": hotkey.KeyL,
	"M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO, "P": hotkey.KeyP,
	"Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX,
	"Y": hotkey.KeyY, "Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"SPACE":  hotkey.KeySpace,
	"TAB":    hotkey.KeyTab,
	"RETURN": hotkey.KeyReturn,
	"ESCAPE": hotkey.KeyEscape,
	"ESC":    hotkey.KeyEscape,
	"DELETE": hotkey.KeyDelete,
	// Carbon virtual key codes for the function row
	"F1": hotkey.Key(0x7A), "F2": hotkey.Key(0x78), "F3": hotkey.Key(0x63), "F4": hotkey.Key(0x76),
	"F5": hotkey.Key(0x60), "F6": hotkey.Key(0x61), "F7": hotkey.Key(0x62), "F8": hotkey.Key(0x64),
	"F9": hotkey.Key(0x65), "F10": hotkey.Key(0x6D), "F11": hotkey.Key(0x67), "F12": hotkey.Key(0x6F),
}

// keyDisplay is the canonical name for each key code
var keyDisplay = func() map[hotkey.Key]string {
	m := make(map[hotkey.Key]string, len(keyNames))
	for name, key := range keyNames {
		if name == "ESCAPE" {
			continue
		}
		m[key] = name
	}
	m[hotkey.KeySpace] = "Space"
	m[hotkey.KeyTab] = "Tab"
	m[hotkey.KeyReturn] = "Return"
	m[hotkey.KeyEscape] = "Esc"
	m[hotkey.KeyDelete] = "Delete"
	return m
}()

// Parse converts trigger text such as "⌘⌥A" or "⌃⇧F5" into a Combo.
// Modifier symbols may appear in any order.
func Parse(trigger string) (Combo, error) {
	var combo Combo
	rest := trigger
	for _, m := range modifierSymbols {
		if strings.Contains(rest, m.symbol) {
			combo.Modifiers = append(combo.Modifiers, m.mod)
			rest = strings.ReplaceAll(rest, m.symbol, "")
		}
	}

	name := strings.ToUpper(strings.TrimSpace(rest))
	if rest == " " {
		name = "SPACE"
	}

	key, ok := keyNames[name]
	if !ok {
		return Combo{}, fmt.Errorf("unsupported key %q in shortcut %q", rest, trigger)
	}
	combo.Key = key
	return combo, nil
}

// Mask returns the modifiers as a bit set
func (c Combo) Mask() uint32 {
	var mask uint32
	for _, m := range c.Modifiers {
		mask |= uint32(m)
	}
	return mask
}

// Equal reports whether two combos press the same keys
func (c Combo) Equal(other Combo) bool {
	return c.Key == other.Key && c.Mask() == other.Mask()
}

// String returns the canonical trigger text
func (c Combo) String() string {
	return FormatTrigger(c.Modifiers, c.Key)
}

// FormatTrigger returns a human-readable representation, modifiers in ⌃⌥⇧⌘ order
func FormatTrigger(modifiers []hotkey.Modifier, key hotkey.Key) string {
	var mask uint32
	for _, m := range modifiers {
		mask |= uint32(m)
	}

	var b strings.Builder
	for _, m := range modifierSymbols {
		if mask&uint32(m.mod) != 0 {
			b.WriteString(m.symbol)
		}
	}

	if name, ok := keyDisplay[key]; ok {
		b.WriteString(name)
	} else {
		b.WriteString("Unknown")
	}
	return b.String()
}

// Normalize parses trigger and returns its canonical text
func Normalize(trigger string) (string, error) {
	combo, err := Parse(trigger)
	if err != nil {
		return "", err
	}
	return combo.String(), nil
}
