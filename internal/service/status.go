package service

import "os"

// Status returns the plist path and whether it exists.
func Status(label string) (string, bool) {
	plist := LaunchdPath(label)
	if _, err := os.Stat(plist); err == nil {
		return plist, true
	}
	return plist, false
}
