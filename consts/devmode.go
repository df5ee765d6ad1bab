package consts

import (
	"os"
	"strings"
)

var devmode string = "false"

// IsDevMode reports whether the binary runs in development mode. It can be
// forced at build time via -ldflags or at runtime via PHOTOPOST_DEV.
func IsDevMode() bool {
	if strings.ToLower(os.Getenv("PHOTOPOST_DEV")) == "true" {
		return true
	}
	return strings.ToLower(devmode) == "true"
}
