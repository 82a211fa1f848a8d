package device

import "strings"

// The two heuristics below can disagree: a built-in device the user renamed
// fails the name check, and some USB docks report names like "Built-in Output".
// Call sites decide how to combine them; they are intentionally not merged.

// BuiltInByTransport reports whether the host classifies t as built-in hardware
func BuiltInByTransport(t Transport) bool {
	return t == BuiltIn
}

// BuiltInByName guesses from the device name whether it is the Mac's own
// speaker or microphone.
func BuiltInByName(name string, dir Direction) bool {
	if dir == Input {
		return (strings.Contains(name, "MacBook") && strings.Contains(name, "Microphone")) ||
			(strings.Contains(name, "Built-in") && strings.Contains(name, "Input"))
	}
	return (strings.Contains(name, "MacBook") && strings.Contains(name, "Speaker")) ||
		(strings.Contains(name, "Built-in") && strings.Contains(name, "Output"))
}
