package engine

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/appdata"
	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/config"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/luatable"
)

// checkStatus is the download half of a sync cycle: fetch the server
// snapshot, reconcile addons and backups, pull new market data and stamp
// the data file the in-game addon reads. A failed pull still leaves a
// stamped, saved data file; the error is reported so the caller can tell
// a lost session from a transient hiccup.
func (e *Engine) checkStatus(ctx context.Context) error {
	status, err := e.api.Status(ctx)
	if err != nil {
		return err
	}

	addonVersions := e.reconcileAddons(ctx, status.Addons)
	e.syncBackups(ctx)

	if kind, _, _ := e.game.InstalledVersion(game.DataAddon); kind == game.VersionInvalid {
		_ = e.notify.Notify("AddonSync",
			fmt.Sprintf("The %s addon is not installed, so no data can be synchronized.", game.DataAddon), true)
		return nil
	}
	if len(status.Realms) == 0 {
		_ = e.notify.Notify("AddonSync", "No realms are set up on your account yet.", false)
		return nil
	}

	store := appdata.Load(e.game.AppDataPath(), e.log)
	pullErr := e.pullMarketData(ctx, store, status)
	e.stampAppInfo(store, status, addonVersions)
	if err := store.Save(); err != nil {
		return err
	}
	return pullErr
}

// reconcileAddons brings release-channel addons in line with the server:
// retired addons get deleted, outdated ones get updated for premium
// accounts. Dev and invalid installs are never touched. Returns the
// installed version strings for the APP_INFO stamp.
func (e *Engine) reconcileAddons(ctx context.Context, addons []api.AddonInfo) map[string]string {
	versions := map[string]string{}
	for _, addon := range addons {
		kind, code, str := e.game.InstalledVersion(addon.Name)
		if kind == game.VersionRelease {
			switch {
			case addon.Version == 0:
				if err := e.game.DeleteAddon(ctx, addon.Name); err != nil {
					e.log.Error(ctx, "failed to delete retired addon", "addon", addon.Name, "err", err)
				} else {
					e.log.Info(ctx, "deleted retired addon", "addon", addon.Name)
				}
				continue
			case code < addon.Version && e.api.IsPremium():
				data, err := e.api.Addon(ctx, addon.Name)
				if err != nil {
					e.log.Warn(ctx, "addon download failed", "addon", addon.Name, "err", err)
					break
				}
				if err := e.game.InstallAddon(ctx, addon.Name, data); err != nil {
					e.log.Error(ctx, "addon install failed", "addon", addon.Name, "err", err)
					break
				}
				_, _, str = e.game.InstalledVersion(addon.Name)
				_ = e.notify.Notify("AddonSync", fmt.Sprintf("Updated %s to %s.", addon.Name, str), false)
			}
		}
		if str != "" {
			versions[addon.Name] = str
		}
	}
	return versions
}

// syncBackups creates due local backups, pushes new ones for premium
// accounts, merges in the remote index and expires old archives.
func (e *Engine) syncBackups(ctx context.Context) {
	created, err := e.backups.CreateDue(ctx, e.game.Accounts())
	if err != nil {
		e.log.Error(ctx, "backup creation failed", "err", err)
	}
	if e.api.IsPremium() {
		for _, b := range created {
			data, err := os.ReadFile(e.backups.ArchivePath(b))
			if err != nil {
				e.log.Error(ctx, "cannot read backup for upload", "archive", b.LocalArchiveName(), "err", err)
				continue
			}
			if err := e.api.UploadBackup(ctx, b.RemoteArchiveName(), data); err != nil {
				e.log.Warn(ctx, "backup upload failed", "archive", b.RemoteArchiveName(), "err", err)
			}
		}
	}

	var remote []backup.Backup
	if e.api.IsPremium() {
		index, err := e.api.BackupIndex(ctx)
		if err != nil {
			e.log.Warn(ctx, "backup index fetch failed", "err", err)
		} else {
			remote = remoteBackups(index)
		}
	}

	merged := backup.Reconcile(e.backups.List(), remote)
	e.backups.Expire(ctx, merged)
	merged = backup.Reconcile(e.backups.List(), remote)

	e.mu.Lock()
	e.backupList = merged
	e.mu.Unlock()
}

// remoteBackups flattens the "systemID~account" keyed index into records.
func remoteBackups(index map[string][]api.RemoteBackupInfo) []backup.Backup {
	var out []backup.Backup
	for key, infos := range index {
		parts := strings.SplitN(key, common.BackupSeparator, 2)
		if len(parts) != 2 {
			continue
		}
		for _, info := range infos {
			out = append(out, backup.Backup{
				SystemID:  parts[0],
				Account:   parts[1],
				Timestamp: time.Unix(info.Timestamp, 0),
				IsRemote:  true,
				Keep:      info.Keep,
			})
		}
	}
	return out
}

// pullMarketData downloads market-data expressions for every realm and
// region whose server copy is newer than the stored one. Realms sharing a
// master id share one download. A failed download is logged and skipped so
// the remaining scopes still refresh; the first error is returned after
// the full pass.
func (e *Engine) pullMarketData(ctx context.Context, store *appdata.Store, status *api.Status) error {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	byMaster := map[int64][]api.RealmInfo{}
	for _, realm := range status.Realms {
		if realm.LastModified > store.LastUpdate(appdata.TypeAuctionDBMarketData, realm.Name) {
			byMaster[realm.MasterID] = append(byMaster[realm.MasterID], realm)
		}
	}
	for masterID, realms := range byMaster {
		data, err := e.api.AuctionDB(ctx, "realm", strconv.FormatInt(masterID, 10))
		if err != nil {
			e.log.Warn(ctx, "realm market data download failed", "master", masterID, "err", err)
			keep(err)
			continue
		}
		for _, realm := range realms {
			store.Update(appdata.TypeAuctionDBMarketData, realm.Name, data, realm.LastModified, false)
		}
	}

	for _, region := range status.Regions {
		if region.LastModified <= store.LastUpdate(appdata.TypeAuctionDBMarketData, region.Name) {
			continue
		}
		data, err := e.api.AuctionDB(ctx, "region", strconv.FormatInt(region.ID, 10))
		if err != nil {
			e.log.Warn(ctx, "region market data download failed", "region", region.Name, "err", err)
			keep(err)
			continue
		}
		store.Update(appdata.TypeAuctionDBMarketData, region.Name, data, region.LastModified, false)
	}

	if !e.api.IsPremium() {
		return firstErr
	}
	byMaster = map[int64][]api.RealmInfo{}
	for _, realm := range status.Realms {
		if realm.LastModified > store.LastUpdate(appdata.TypeShoppingSearches, realm.Name) {
			byMaster[realm.MasterID] = append(byMaster[realm.MasterID], realm)
		}
	}
	for masterID, realms := range byMaster {
		data, err := e.api.Shopping(ctx, strconv.FormatInt(masterID, 10))
		if err != nil {
			e.log.Warn(ctx, "shopping data download failed", "master", masterID, "err", err)
			keep(err)
			continue
		}
		for _, realm := range realms {
			store.Update(appdata.TypeShoppingSearches, realm.Name, data, realm.LastModified, false)
		}
	}
	return firstErr
}

// stampAppInfo writes the APP_INFO record the in-game addon shows to the
// user: build number, sync time, installed addon versions and the server's
// message of the day. The payload is a finished table literal, so it is
// stored raw.
func (e *Engine) stampAppInfo(store *appdata.Store, status *api.Status, versions map[string]string) {
	addonVersions := luatable.Table{}
	for name, version := range versions {
		addonVersions[name] = version
	}

	now := e.now().Unix()
	payload := luatable.Serialize(luatable.Table{
		"version":       config.VersionCode,
		"lastSync":      now,
		"addonVersions": addonVersions,
		"message": luatable.Table{
			"id":  status.AddonMessage.ID,
			"msg": status.AddonMessage.Msg,
		},
	})
	store.Update(appdata.TypeAppInfo, "Global", payload, now, true)
}

// uploadData is the upload half of a sync cycle. Each payload is pushed
// independently; a failure in one never blocks the others.
func (e *Engine) uploadData(ctx context.Context) {
	for key, sd := range e.game.BlackMarketData() {
		if _, err := e.api.BlackMarket(ctx, key.Region, key.Realm, sd.Data, sd.UpdateTime); err != nil {
			e.log.Warn(ctx, "black market upload failed", "realm", key.Realm, "err", err)
		}
	}

	for key, sd := range e.game.SalesData() {
		last, err := e.api.SalesLastUpload(ctx, key.Region, key.Realm, key.Account)
		if err != nil {
			e.log.Warn(ctx, "sales check failed", "realm", key.Realm, "account", key.Account, "err", err)
			continue
		}
		if sd.UpdateTime <= last {
			continue
		}
		if err := e.api.UploadSales(ctx, key.Region, key.Realm, key.Account, sd.Data); err != nil {
			e.log.Warn(ctx, "sales upload failed", "realm", key.Realm, "account", key.Account, "err", err)
		}
	}

	for key, sd := range e.game.GroupData() {
		if _, err := e.api.Groups(ctx, key.Account, key.Profile, sd.Data, sd.UpdateTime); err != nil {
			e.log.Warn(ctx, "group upload failed", "account", key.Account, "profile", key.Profile, "err", err)
		}
	}

	for account, sd := range e.game.AnalyticsData() {
		if _, err := e.api.Analytics(ctx, account, sd.Data, sd.UpdateTime); err != nil {
			e.log.Warn(ctx, "analytics upload failed", "account", account, "err", err)
		}
	}
}
