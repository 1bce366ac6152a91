// Package game wraps the local game directory: addon install and version
// inspection, per-account save files, and the synchronized-data file the
// in-game data addon consumes.
package game

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/logging"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

// DataAddon is the in-game addon the sync engine feeds data to. Without it
// installed there is nothing to synchronize into.
const DataAddon = "AddonSync_AppHelper"

// appDataFile is the record file inside the data addon's directory.
const appDataFile = "AppData.lua"

const versionMarker = "## Version:"

// Helper performs all local game-directory operations. The directory itself
// comes from settings and may change at runtime.
type Helper struct {
	settings *settings.Settings
	log      logging.Logger
}

func NewHelper(st *settings.Settings, log logging.Logger) *Helper {
	return &Helper{settings: st, log: log}
}

// IsValidGameDir checks the two directories every installation has.
func IsValidGameDir(path string) bool {
	if path == "" {
		return false
	}
	if info, err := os.Stat(filepath.Join(path, "Interface", "Addons")); err != nil || !info.IsDir() {
		return false
	}
	if info, err := os.Stat(filepath.Join(path, "WTF")); err != nil || !info.IsDir() {
		return false
	}
	return true
}

func (h *Helper) HasValidGameDir() bool {
	return IsValidGameDir(h.settings.GameDir())
}

func (h *Helper) addonsDir() string {
	return filepath.Join(h.settings.GameDir(), "Interface", "Addons")
}

func (h *Helper) addonDir(name string) string {
	return filepath.Join(h.addonsDir(), name)
}

// AppDataPath is where the synchronized-data file lives. The data addon
// must be installed for the path to exist.
func (h *Helper) AppDataPath() string {
	return filepath.Join(h.addonDir(DataAddon), appDataFile)
}

// InstalledVersion reads the addon's TOC file and returns the version kind,
// comparable code and raw string. A missing addon or unparseable marker is
// (VersionInvalid, 0, "").
func (h *Helper) InstalledVersion(addon string) (VersionKind, int64, string) {
	if h.settings.GameDir() == "" {
		return VersionInvalid, 0, ""
	}
	tocPath := filepath.Join(h.addonDir(addon), addon+".toc")
	f, err := os.Open(tocPath)
	if err != nil {
		return VersionInvalid, 0, ""
	}
	defer f.Close()

	var versionStr string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, versionMarker); idx >= 0 {
			versionStr = strings.TrimSpace(line[idx+len(versionMarker):])
		}
	}
	if versionStr == "" {
		return VersionInvalid, 0, ""
	}
	kind, code := ParseVersion(versionStr)
	if kind == VersionInvalid {
		h.log.Error(context.Background(), "invalid version marker", "addon", addon, "version", versionStr)
		return VersionInvalid, 0, ""
	}
	if kind == VersionDev {
		return kind, code, "Dev"
	}
	return kind, code, versionStr
}

// DeleteAddon removes the addon directory, retrying a bounded number of
// times to ride out transient file locks held by the game client or AV
// scanners.
func (h *Helper) DeleteAddon(ctx context.Context, addon string) error {
	if addon == "" {
		return fmt.Errorf("empty addon name")
	}
	dir := h.addonDir(addon)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	backoff := retry.WithMaxRetries(5, retry.NewConstant(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := os.RemoveAll(dir); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// InstallAddon replaces any existing install with the contents of the
// downloaded zip.
func (h *Helper) InstallAddon(ctx context.Context, addon string, zipData []byte) error {
	if err := h.DeleteAddon(ctx, addon); err != nil {
		return err
	}
	r, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return err
	}
	dest := h.addonsDir()
	for _, file := range r.File {
		target := filepath.Join(dest, file.Name)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes addons dir: %s", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		src, err := file.Open()
		if err != nil {
			return err
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	h.log.Info(ctx, "installed addon", "addon", addon)
	return nil
}

// AccountNames lists the game accounts under WTF/Account.
func (h *Helper) AccountNames() []string {
	entries, err := os.ReadDir(filepath.Join(h.settings.GameDir(), "WTF", "Account"))
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

func (h *Helper) savedVariablesDir(account string) string {
	return filepath.Join(h.settings.GameDir(), "WTF", "Account", account, "SavedVariables")
}

func (h *Helper) savedVariablesPath(account, file string) string {
	return filepath.Join(h.savedVariablesDir(account), file)
}

// Accounts returns each account with its tracked save files, ready for the
// backup manager.
func (h *Helper) Accounts() []backup.Account {
	var accounts []backup.Account
	for _, name := range h.AccountNames() {
		entries, err := os.ReadDir(h.savedVariablesDir(name))
		if err != nil {
			continue
		}
		var files []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
				continue
			}
			files = append(files, filepath.Join(h.savedVariablesDir(name), entry.Name()))
		}
		accounts = append(accounts, backup.Account{Name: name, Files: files})
	}
	return accounts
}

// SavedVariablesDir exposes the per-account save directory for restores.
func (h *Helper) SavedVariablesDir(account string) string {
	return h.savedVariablesDir(account)
}
