//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework ApplicationServices

#include <ApplicationServices/ApplicationServices.h>

int check_accessibility_permission() {
    return AXIsProcessTrusted() ? 1 : 0;
}
*/
import "C"

func accessibilityTrusted() bool {
	return C.check_accessibility_permission() == 1
}
