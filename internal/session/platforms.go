package session

import (
	"strings"

	"github.com/BMO568/vscode-cordova/internal/apperr"
)

// PlatformKind is the closed set of platform families a session can target.
type PlatformKind int

const (
	PlatformAndroid PlatformKind = iota
	PlatformIOS
	PlatformBrowser
)

func (k PlatformKind) String() string {
	switch k {
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	case PlatformBrowser:
		return "browser"
	default:
		return "unknown"
	}
}

// DeviceClass reports whether the platform targets a device or emulator and
// therefore needs target resolution and an attach channel. Browser-class
// platforms are targetless.
func (k PlatformKind) DeviceClass() bool {
	return k == PlatformAndroid || k == PlatformIOS
}

// ResolvePlatform maps the requested platform name and the "simulate" flag to
// a platform family. Simulate mode always maps to the browser-class
// implementation, regardless of the nominal platform.
func ResolvePlatform(name string, simulateRequested bool) (PlatformKind, error) {
	if simulateRequested {
		return PlatformBrowser, nil
	}

	switch strings.ToLower(name) {
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	case "browser", "serve":
		return PlatformBrowser, nil
	default:
		return PlatformBrowser, apperr.Resolutionf("unknown platform '%s'", name)
	}
}
