package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/logging"
)

// Account names one game account and the save files tracked for it.
type Account struct {
	Name  string
	Files []string
}

// Manager owns the backup archive directory. Single-writer (the sync
// worker), like everything else with on-disk state.
type Manager struct {
	dir      string
	systemID string
	period   time.Duration
	expiry   time.Duration
	log      logging.Logger
	now      func() time.Time
}

func NewManager(dir, systemID string, period, expiry time.Duration, log logging.Logger) *Manager {
	return &Manager{
		dir:      dir,
		systemID: systemID,
		period:   period,
		expiry:   expiry,
		log:      log,
		now:      time.Now,
	}
}

// List enumerates local archives. Files with unparseable names are skipped.
func (m *Manager) List() []Backup {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}
	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, err := ParseArchiveName(entry.Name(), m.systemID)
		if err != nil {
			continue
		}
		b.IsLocal = true
		backups = append(backups, b)
	}
	return backups
}

// CreateDue makes a new archive for every account whose save files changed
// since its last backup, provided the backup period elapsed. Unmodified
// accounts are skipped even when the period elapsed, so repeated cycles do
// not pile up identical archives.
func (m *Manager) CreateDue(ctx context.Context, accounts []Account) ([]Backup, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, err
	}

	lastByAccount := map[string]time.Time{}
	for _, b := range m.List() {
		if b.Timestamp.After(lastByAccount[b.Account]) {
			lastByAccount[b.Account] = b.Timestamp
		}
	}

	var created []Backup
	for _, account := range accounts {
		if !accountNamePattern.MatchString(account.Name) {
			m.log.Warn(ctx, "skipping account with invalid name", "account", account.Name)
			continue
		}
		last := lastByAccount[account.Name]
		if !last.IsZero() {
			if m.now().Sub(last) < m.period {
				continue
			}
			if !anyModifiedSince(account.Files, last) {
				continue
			}
		}
		if len(account.Files) == 0 {
			continue
		}

		b := Backup{
			SystemID:  m.systemID,
			Account:   account.Name,
			Timestamp: m.now().Truncate(time.Second),
			IsLocal:   true,
		}
		if err := writeArchive(filepath.Join(m.dir, b.LocalArchiveName()), account.Files); err != nil {
			m.log.Error(ctx, "failed to create backup", "account", account.Name, "err", err)
			continue
		}
		m.log.Info(ctx, "created backup", "account", account.Name, "archive", b.LocalArchiveName())
		created = append(created, b)
	}
	return created, nil
}

// Expire deletes local archives older than the expiry, except those flagged
// keep. Returns the backups that were removed.
func (m *Manager) Expire(ctx context.Context, backups []Backup) []Backup {
	var removed []Backup
	for _, b := range backups {
		if !b.IsLocal || b.Keep {
			continue
		}
		if m.now().Sub(b.Timestamp) <= m.expiry {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, b.LocalArchiveName())); err != nil {
			m.log.Error(ctx, "failed to expire backup", "archive", b.LocalArchiveName(), "err", err)
			continue
		}
		m.log.Info(ctx, "expired backup", "archive", b.LocalArchiveName())
		removed = append(removed, b)
	}
	return removed
}

// Restore extracts a local archive over destDir. The caller verifies the
// game client is not running; that precondition is not enforced here.
func (m *Manager) Restore(b Backup, destDir string) error {
	if !b.IsLocal {
		return common.ErrBackupMissing
	}
	path := filepath.Join(m.dir, b.LocalArchiveName())
	r, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return common.ErrBackupMissing
		}
		return err
	}
	defer r.Close()
	return extract(&r.Reader, destDir)
}

// RestoreBytes extracts a downloaded remote-only archive over destDir.
func (m *Manager) RestoreBytes(data []byte, destDir string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	return extract(r, destDir)
}

// ArchivePath returns the on-disk location of a local backup.
func (m *Manager) ArchivePath(b Backup) string {
	return filepath.Join(m.dir, b.LocalArchiveName())
}

func anyModifiedSince(files []string, since time.Time) bool {
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().After(since) {
			return true
		}
	}
	return false
}

// writeArchive zips the given files flat (base names only), matching the
// layout of a SavedVariables directory.
func writeArchive(path string, files []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, src := range files {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		entry, err := w.Create(filepath.Base(src))
		if err != nil {
			return err
		}
		if _, err := entry.Write(data); err != nil {
			return err
		}
	}
	return w.Close()
}

func extract(r *zip.Reader, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, file := range r.File {
		target := filepath.Join(destDir, file.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", file.Name)
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
	return nil
}
