package game

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addonsync/internal/logging"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newGameDir builds a minimal valid game directory tree.
func newGameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Interface", "Addons"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WTF"), 0o755))
	return dir
}

func newHelper(t *testing.T, gameDir string) *Helper {
	t.Helper()
	st, err := settings.Load(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	require.NoError(t, st.SetGameDir(gameDir))
	return NewHelper(st, testLogger())
}

func writeTOC(t *testing.T, gameDir, addon, version string) {
	t.Helper()
	dir := filepath.Join(gameDir, "Interface", "Addons", addon)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "## Title: " + addon + "\n## Version: " + version + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, addon+".toc"), []byte(content), 0o644))
}

func TestIsValidGameDir(t *testing.T) {
	assert.True(t, IsValidGameDir(newGameDir(t)))
	assert.False(t, IsValidGameDir(t.TempDir()))
	assert.False(t, IsValidGameDir(""))

	// Addons without WTF is not enough
	partial := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(partial, "Interface", "Addons"), 0o755))
	assert.False(t, IsValidGameDir(partial))
}

func TestInstalledVersion(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)

	writeTOC(t, gameDir, "Foo", "v2.1.3")
	kind, code, str := h.InstalledVersion("Foo")
	assert.Equal(t, VersionRelease, kind)
	assert.Equal(t, int64(20103), code)
	assert.Equal(t, "v2.1.3", str)

	writeTOC(t, gameDir, "Bar", "@project-version@")
	kind, code, str = h.InstalledVersion("Bar")
	assert.Equal(t, VersionDev, kind)
	assert.Equal(t, int64(-1), code)
	assert.Equal(t, "Dev", str)

	kind, code, _ = h.InstalledVersion("Missing")
	assert.Equal(t, VersionInvalid, kind)
	assert.Zero(t, code)

	writeTOC(t, gameDir, "Baz", "not-a-version")
	kind, _, _ = h.InstalledVersion("Baz")
	assert.Equal(t, VersionInvalid, kind)
}

func addonZip(t *testing.T, addon, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(addon + "/" + addon + ".toc")
	require.NoError(t, err)
	_, err = f.Write([]byte("## Version: " + version + "\n"))
	require.NoError(t, err)
	f, err = w.Create(addon + "/core.lua")
	require.NoError(t, err)
	_, err = f.Write([]byte("-- core"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInstallAddon_ReplacesExisting(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)
	ctx := context.Background()

	writeTOC(t, gameDir, "Foo", "v1.0")
	// leftover file from the old version must disappear
	stale := filepath.Join(gameDir, "Interface", "Addons", "Foo", "old.lua")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

	require.NoError(t, h.InstallAddon(ctx, "Foo", addonZip(t, "Foo", "v2.0")))

	kind, code, _ := h.InstalledVersion("Foo")
	assert.Equal(t, VersionRelease, kind)
	assert.Equal(t, int64(20000), code)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(gameDir, "Interface", "Addons", "Foo", "core.lua"))
}

func TestInstallAddon_RejectsEscapingEntries(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("../evil.lua")
	require.NoError(t, err)
	_, err = f.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, h.InstallAddon(context.Background(), "Foo", buf.Bytes()))
}

func TestDeleteAddon(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)
	ctx := context.Background()

	writeTOC(t, gameDir, "Foo", "v1.0")
	require.NoError(t, h.DeleteAddon(ctx, "Foo"))
	assert.NoDirExists(t, filepath.Join(gameDir, "Interface", "Addons", "Foo"))

	// deleting an absent addon is a no-op
	require.NoError(t, h.DeleteAddon(ctx, "Foo"))

	assert.Error(t, h.DeleteAddon(ctx, ""))
}

func TestAccounts_EnumeratesSavedVariables(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)

	svDir := filepath.Join(gameDir, "WTF", "Account", "Main", "SavedVariables")
	require.NoError(t, os.MkdirAll(svDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(svDir, "AddonSync.lua"), []byte("x = 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(svDir, "notes.txt"), []byte("skip me"), 0o644))

	// account without a SavedVariables dir is listed but carries no files
	require.NoError(t, os.MkdirAll(filepath.Join(gameDir, "WTF", "Account", "Empty"), 0o755))

	names := h.AccountNames()
	assert.ElementsMatch(t, []string{"Main", "Empty"}, names)

	accounts := h.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "Main", accounts[0].Name)
	require.Len(t, accounts[0].Files, 1)
	assert.Equal(t, filepath.Join(svDir, "AddonSync.lua"), accounts[0].Files[0])
}

func TestAppDataPath(t *testing.T) {
	gameDir := newGameDir(t)
	h := newHelper(t, gameDir)
	want := filepath.Join(gameDir, "Interface", "Addons", DataAddon, "AppData.lua")
	assert.Equal(t, want, h.AppDataPath())
}
