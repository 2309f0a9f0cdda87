package attach

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BMO568/vscode-cordova/internal/apperr"
)

// Candidate manifest locations, newest platform layout first. A missing file
// at the first location is a probe result, not a failure; only when no
// location yields a manifest is the resolution reported as failed.
var manifestLocations = []string{
	filepath.Join("platforms", "android", "app", "src", "main", "AndroidManifest.xml"),
	filepath.Join("platforms", "android", "AndroidManifest.xml"),
}

type androidManifest struct {
	XMLName xml.Name `xml:"manifest"`
	Package string   `xml:"package,attr"`
}

// ResolveApplicationID reads the application (package) identifier from the
// project's Android manifest.
func ResolveApplicationID(projectRoot string) (string, error) {
	var probeErrs error

	for _, location := range manifestLocations {
		path := filepath.Join(projectRoot, location)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			probeErrs = errors.Join(probeErrs, err)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("could not read manifest '%s': %w", path, err)
		}

		var manifest androidManifest
		if err := xml.Unmarshal(data, &manifest); err != nil {
			return "", fmt.Errorf("could not parse manifest '%s': %w", path, err)
		}
		if manifest.Package == "" {
			return "", fmt.Errorf("manifest '%s' does not declare a package identifier", path)
		}
		return manifest.Package, nil
	}

	return "", apperr.Resolutionf("no Android manifest found under '%s': %v", projectRoot, probeErrs)
}
