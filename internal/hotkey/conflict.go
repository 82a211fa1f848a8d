package hotkey

import "golang.design/x/hotkey"

// ConflictInfo represents information about a known shortcut conflict
type ConflictInfo struct {
	Name        string
	Description string
	Combo       Combo
}

// knownConflicts contains a list of known macOS shortcuts that might conflict
var knownConflicts = []ConflictInfo{
	{
		Name:        "Spotlight",
		Description: "macOS Spotlight search",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCmd}, Key: hotkey.KeySpace},
	},
	{
		Name:        "Input Source",
		Description: "Switch to the previous input source",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCtrl}, Key: hotkey.KeySpace},
	},
	{
		Name:        "Force Quit",
		Description: "macOS Force Quit",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCmd, hotkey.ModOption}, Key: hotkey.KeyEscape},
	},
	{
		Name:        "Hide Others",
		Description: "Hide all other applications",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCmd, hotkey.ModOption}, Key: hotkey.KeyH},
	},
	{
		Name:        "Screenshot",
		Description: "Save a screenshot of the screen",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift}, Key: hotkey.Key3},
	},
	{
		Name:        "Screenshot Selection",
		Description: "Save a screenshot of a selection",
		Combo:       Combo{Modifiers: []hotkey.Modifier{hotkey.ModCmd, hotkey.ModShift}, Key: hotkey.Key4},
	},
}

// CheckConflicts checks if the given combo conflicts with known system shortcuts
func CheckConflicts(c Combo) []ConflictInfo {
	var conflicts []ConflictInfo

	for _, known := range knownConflicts {
		if c.Equal(known.Combo) {
			conflicts = append(conflicts, known)
		}
	}

	return conflicts
}

// CheckTrigger parses trigger and checks it against known system shortcuts
func CheckTrigger(trigger string) ([]ConflictInfo, error) {
	c, err := Parse(trigger)
	if err != nil {
		return nil, err
	}
	return CheckConflicts(c), nil
}
