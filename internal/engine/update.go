package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/cryptox"
)

// selfUpdate compares the installed application files against the remote
// manifest and stages a complete new installation in a sibling directory.
// The launcher swaps the directories on next start. Any download failure
// discards the staging directory so a partial update can never be applied.
func (e *Engine) selfUpdate(ctx context.Context) (bool, error) {
	if e.appDir == "" {
		return false, nil
	}
	files, err := e.api.AppManifest(ctx)
	if err != nil {
		return false, err
	}

	var unchanged, changed []api.AppManifestFile
	for _, f := range files {
		sum, err := cryptox.FileMD5(filepath.Join(e.appDir, filepath.FromSlash(f.Path)))
		if err == nil && sum == f.MD5 {
			unchanged = append(unchanged, f)
		} else {
			changed = append(changed, f)
		}
	}
	if len(changed) == 0 {
		return false, nil
	}
	e.log.Info(ctx, "staging self-update", "changed", len(changed), "unchanged", len(unchanged))

	staging := e.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return false, err
	}
	for _, f := range unchanged {
		src := filepath.Join(e.appDir, filepath.FromSlash(f.Path))
		dst := filepath.Join(staging, filepath.FromSlash(f.Path))
		if err := copyFile(src, dst); err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
	}
	for _, f := range changed {
		data, err := e.api.AppFile(ctx, f.Path)
		if err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
		dst := filepath.Join(staging, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
		if err := os.WriteFile(dst, data, 0o755); err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
	}
	return true, nil
}

func (e *Engine) stagingDir() string {
	return filepath.Join(filepath.Dir(e.appDir), filepath.Base(e.appDir)+"_new")
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o755)
}
