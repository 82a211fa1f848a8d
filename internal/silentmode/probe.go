package silentmode

import (
	"errors"

	"github.com/go-vgo/robotgo"
)

// Probe reports the frontmost application
type Probe interface {
	Frontmost() (string, error)
}

// RobotProbe reads the frontmost process through robotgo.
// アクセシビリティ権限がないと pid は取れない
type RobotProbe struct{}

// Frontmost returns the process name of the active window
func (RobotProbe) Frontmost() (string, error) {
	pid := int(robotgo.GetPid())
	if pid <= 0 {
		return "", errors.New("no frontmost application")
	}
	return robotgo.FindName(pid)
}
