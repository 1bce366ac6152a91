package api

import (
	"context"
	"encoding/base64"
	"runtime"
)

// Login exchanges hashed credentials for a session. The hashes are produced
// by cryptox.HashEmail / cryptox.HashPassword; the plaintext never reaches
// this package.
func (c *Client) Login(ctx context.Context, emailHash, passwordHash string) error {
	var session Session
	if err := c.requestJSON(ctx, []string{"login", emailHash, passwordHash}, nil, &session); err != nil {
		return err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return nil
}

// Status fetches the per-cycle snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.requestJSON(ctx, []string{"status"}, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Addon downloads the latest release zip of the named addon.
func (c *Client) Addon(ctx context.Context, name string) ([]byte, error) {
	return c.requestBytes(ctx, []string{"addon", name})
}

// AuctionDB fetches the market-data expression for one realm or region.
// kind is "realm" or "region"; id is the master/region id as a string.
func (c *Client) AuctionDB(ctx context.Context, kind, id string) (string, error) {
	var out struct {
		Data string `json:"data"`
	}
	if err := c.requestJSON(ctx, []string{"auctiondb", kind, id}, nil, &out); err != nil {
		return "", err
	}
	return out.Data, nil
}

// Shopping fetches the great-deals expression for one realm (premium only).
func (c *Client) Shopping(ctx context.Context, id string) (string, error) {
	var out struct {
		Data string `json:"data"`
	}
	if err := c.requestJSON(ctx, []string{"shopping", id}, nil, &out); err != nil {
		return "", err
	}
	return out.Data, nil
}

// AppManifest fetches the self-update file manifest for this platform.
func (c *Client) AppManifest(ctx context.Context) ([]AppManifestFile, error) {
	var out struct {
		Files []AppManifestFile `json:"files"`
	}
	if err := c.requestJSON(ctx, []string{"app", platform()}, nil, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

// AppFile downloads one file from the self-update manifest.
func (c *Client) AppFile(ctx context.Context, path string) ([]byte, error) {
	return c.requestBytes(ctx, []string{"app", platform(), b64(path)})
}

// BackupIndex fetches the remote backup index, keyed by
// "systemID~account".
func (c *Client) BackupIndex(ctx context.Context) (map[string][]RemoteBackupInfo, error) {
	var out struct {
		Data map[string][]RemoteBackupInfo `json:"data"`
	}
	if err := c.requestJSON(ctx, []string{"backup"}, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// UploadBackup pushes one backup archive (premium only).
func (c *Client) UploadBackup(ctx context.Context, name string, data []byte) error {
	return c.requestJSON(ctx, []string{"backup", b64(name)}, data, nil)
}

// DownloadBackup fetches a remote-only backup archive.
func (c *Client) DownloadBackup(ctx context.Context, name string) ([]byte, error) {
	return c.requestBytes(ctx, []string{"backup", b64(name)})
}

// Log uploads a log file; isCrash selects the crash bucket.
func (c *Client) Log(ctx context.Context, data string, isCrash bool) error {
	kind := "user"
	if isCrash {
		kind = "crash"
	}
	_, err := c.request(ctx, []string{"log", kind}, data)
	return err
}

// BlackMarket uploads black-market data when it is newer than the server's
// copy. Reports whether an upload happened.
func (c *Client) BlackMarket(ctx context.Context, region, realm string, data any, updateTime int64) (bool, error) {
	elems := []string{"black_market", region, b64(realm)}
	last, err := c.lastUpload(ctx, elems)
	if err != nil {
		return false, err
	}
	if updateTime <= last {
		return false, nil
	}
	return true, c.requestJSON(ctx, elems, data, nil)
}

// SalesLastUpload returns the server's last sales-upload time for one
// account.
func (c *Client) SalesLastUpload(ctx context.Context, region, realm, account string) (int64, error) {
	return c.lastUpload(ctx, []string{"sales", region, b64(realm), b64(account)})
}

// UploadSales pushes accounting sales rows.
func (c *Client) UploadSales(ctx context.Context, region, realm, account string, data any) error {
	return c.requestJSON(ctx, []string{"sales", region, b64(realm), b64(account)}, data, nil)
}

// Groups uploads group data when newer than the server's copy.
func (c *Client) Groups(ctx context.Context, account, profile string, data any, updateTime int64) (bool, error) {
	elems := []string{"groups", b64(account), b64(profile)}
	last, err := c.lastUpload(ctx, elems)
	if err != nil {
		return false, err
	}
	if updateTime <= last {
		return false, nil
	}
	return true, c.requestJSON(ctx, elems, data, nil)
}

// Analytics uploads analytics data when newer than the server's copy.
func (c *Client) Analytics(ctx context.Context, account string, data any, updateTime int64) (bool, error) {
	elems := []string{"analytics", b64(account)}
	last, err := c.lastUpload(ctx, elems)
	if err != nil {
		return false, err
	}
	if updateTime <= last {
		return false, nil
	}
	return true, c.requestJSON(ctx, elems, data, nil)
}

func (c *Client) lastUpload(ctx context.Context, elems []string) (int64, error) {
	var out struct {
		LastUpload int64 `json:"lastUpload"`
	}
	if err := c.requestJSON(ctx, elems, nil, &out); err != nil {
		return 0, err
	}
	return out.LastUpload, nil
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func platform() string {
	if runtime.GOOS == "windows" {
		return "win"
	}
	return "mac"
}
