//go:build !darwin

package permissions

// There is no accessibility gate off macOS
func accessibilityTrusted() bool {
	return true
}
