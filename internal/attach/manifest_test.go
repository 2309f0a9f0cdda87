package attach

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BMO568/vscode-cordova/internal/apperr"
)

func TestResolveApplicationIDModernLayout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, root, manifestLocations[0], "com.example.modern")

	appID, err := ResolveApplicationID(root)
	require.NoError(t, err)
	require.Equal(t, "com.example.modern", appID)
}

func TestResolveApplicationIDLegacyLayoutFallback(t *testing.T) {
	t.Parallel()

	// Only the old platform layout has a manifest; the probe of the modern
	// location must fall through silently.
	root := t.TempDir()
	writeManifest(t, root, manifestLocations[1], "com.example.legacy")

	appID, err := ResolveApplicationID(root)
	require.NoError(t, err)
	require.Equal(t, "com.example.legacy", appID)
}

func TestResolveApplicationIDPrefersModernLayout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, root, manifestLocations[0], "com.example.modern")
	writeManifest(t, root, manifestLocations[1], "com.example.legacy")

	appID, err := ResolveApplicationID(root)
	require.NoError(t, err)
	require.Equal(t, "com.example.modern", appID)
}

func TestResolveApplicationIDNoManifest(t *testing.T) {
	t.Parallel()

	_, err := ResolveApplicationID(t.TempDir())
	require.ErrorIs(t, err, apperr.ErrResolution)
}

func TestResolveApplicationIDMissingPackageAttribute(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, manifestLocations[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`<manifest></manifest>`), 0o644))

	_, err := ResolveApplicationID(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "package identifier")
}

func TestResolveApplicationIDMalformedManifest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, manifestLocations[0])
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`<manifest package="x"`), 0o644))

	_, err := ResolveApplicationID(root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not parse manifest")
}
