package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/appdata"
	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

func newGameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Interface", "Addons"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "WTF"), 0o755))
	return dir
}

func writeTOC(t *testing.T, gameDir, addon, version string) {
	t.Helper()
	dir := filepath.Join(gameDir, "Interface", "Addons", addon)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "## Title: " + addon + "\n## Version: " + version + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, addon+".toc"), []byte(content), 0o644))
}

func addonZip(t *testing.T, addon, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(addon + "/" + addon + ".toc")
	require.NoError(t, err)
	_, err = f.Write([]byte("## Version: " + version + "\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeSavedVariables(t *testing.T, gameDir, account, file, content string) {
	t.Helper()
	dir := filepath.Join(gameDir, "WTF", "Account", account, "SavedVariables")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

// statusWithRealm is the common single-realm server snapshot.
func statusWithRealm() *api.Status {
	return &api.Status{
		Realms: []api.RealmInfo{
			{ID: 1, Name: "Org", Region: "US", MasterID: 77, LastModified: 100},
		},
		Regions: []api.RegionInfo{
			{ID: 5, Name: "US", LastModified: 50},
		},
		AddonMessage: api.AddonMessage{ID: 3, Msg: "hello"},
	}
}

func newCycleEngine(t *testing.T, fake *fakeAPI) (*Engine, *settings.Settings, string) {
	t.Helper()
	e, st := newTestEngine(t, fake)
	gameDir := newGameDir(t)
	require.NoError(t, st.SetGameDir(gameDir))
	writeTOC(t, gameDir, game.DataAddon, "v2.0")
	return e, st, gameDir
}

func TestCheckStatus_PullsMarketData(t *testing.T) {
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	fake.auctionDB["realm/77"] = "{itemA=1}"
	fake.auctionDB["region/5"] = "{itemB=2}"
	e, _, _ := newCycleEngine(t, fake)

	require.NoError(t, e.checkStatus(context.Background()))

	store := appdata.Load(e.game.AppDataPath(), testLogger())
	assert.Equal(t, int64(100), store.LastUpdate(appdata.TypeAuctionDBMarketData, "Org"))
	assert.Equal(t, int64(50), store.LastUpdate(appdata.TypeAuctionDBMarketData, "US"))

	expr, ok := store.Expr(appdata.TypeAuctionDBMarketData, "Org")
	require.True(t, ok)
	assert.Contains(t, expr, "[[return {itemA=1}]]")

	expr, ok = store.Expr(appdata.TypeAppInfo, "Global")
	require.True(t, ok)
	assert.Contains(t, expr, `["addonVersions"]={}`)
	assert.Contains(t, expr, `["message"]={["id"]=3,["msg"]="hello"}`)
	assert.Contains(t, expr, `["lastSync"]=1700000000`)
	assert.NotContains(t, expr, "[[return") // stamped raw

	// a second cycle with unchanged modification times downloads nothing
	calls := fake.auctionCalls
	require.NoError(t, e.checkStatus(context.Background()))
	assert.Equal(t, calls, fake.auctionCalls)
}

func TestCheckStatus_ShoppingIsPremiumOnly(t *testing.T) {
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	fake.auctionDB["realm/77"] = "{}"
	fake.auctionDB["region/5"] = "{}"
	fake.shopping["77"] = "{deals=1}"
	e, _, _ := newCycleEngine(t, fake)

	require.NoError(t, e.checkStatus(context.Background()))
	store := appdata.Load(e.game.AppDataPath(), testLogger())
	assert.Zero(t, store.LastUpdate(appdata.TypeShoppingSearches, "Org"))

	fake.premium = true
	require.NoError(t, e.checkStatus(context.Background()))
	store = appdata.Load(e.game.AppDataPath(), testLogger())
	assert.Equal(t, int64(100), store.LastUpdate(appdata.TypeShoppingSearches, "Org"))
}

func TestCheckStatus_AddonAutoUpdate(t *testing.T) {
	fake := newFakeAPI()
	fake.premium = true
	fake.status = statusWithRealm()
	fake.status.Addons = []api.AddonInfo{{Name: "AddonSync_Crafting", Version: 20000}}
	fake.auctionDB["realm/77"] = "{}"
	fake.auctionDB["region/5"] = "{}"
	fake.shopping["77"] = "{}"
	fake.addons["AddonSync_Crafting"] = addonZip(t, "AddonSync_Crafting", "v2.0")
	e, _, gameDir := newCycleEngine(t, fake)
	writeTOC(t, gameDir, "AddonSync_Crafting", "v1.0")

	require.NoError(t, e.checkStatus(context.Background()))

	kind, code, str := e.game.InstalledVersion("AddonSync_Crafting")
	assert.Equal(t, game.VersionRelease, kind)
	assert.Equal(t, int64(20000), code)
	assert.Equal(t, "v2.0", str)

	store := appdata.Load(e.game.AppDataPath(), testLogger())
	expr, _ := store.Expr(appdata.TypeAppInfo, "Global")
	assert.Contains(t, expr, `["AddonSync_Crafting"]="v2.0"`)
}

func TestCheckStatus_FreeAccountsAreNotUpdated(t *testing.T) {
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	fake.status.Addons = []api.AddonInfo{{Name: "AddonSync_Crafting", Version: 20000}}
	fake.auctionDB["realm/77"] = "{}"
	fake.auctionDB["region/5"] = "{}"
	fake.addons["AddonSync_Crafting"] = addonZip(t, "AddonSync_Crafting", "v2.0")
	e, _, gameDir := newCycleEngine(t, fake)
	writeTOC(t, gameDir, "AddonSync_Crafting", "v1.0")

	require.NoError(t, e.checkStatus(context.Background()))

	_, code, _ := e.game.InstalledVersion("AddonSync_Crafting")
	assert.Equal(t, int64(10000), code)
}

func TestCheckStatus_RetiredAddonDeleted(t *testing.T) {
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	fake.status.Addons = []api.AddonInfo{{Name: "AddonSync_Legacy", Version: 0}}
	fake.auctionDB["realm/77"] = "{}"
	fake.auctionDB["region/5"] = "{}"
	e, _, gameDir := newCycleEngine(t, fake)
	writeTOC(t, gameDir, "AddonSync_Legacy", "v1.0")

	require.NoError(t, e.checkStatus(context.Background()))
	assert.NoDirExists(t, filepath.Join(gameDir, "Interface", "Addons", "AddonSync_Legacy"))
}

func TestCheckStatus_DevInstallNeverTouched(t *testing.T) {
	fake := newFakeAPI()
	fake.premium = true
	fake.status = statusWithRealm()
	fake.status.Addons = []api.AddonInfo{{Name: "AddonSync_Crafting", Version: 20000}}
	fake.auctionDB["realm/77"] = "{}"
	fake.auctionDB["region/5"] = "{}"
	fake.shopping["77"] = "{}"
	fake.addons["AddonSync_Crafting"] = addonZip(t, "AddonSync_Crafting", "v2.0")
	e, _, gameDir := newCycleEngine(t, fake)
	writeTOC(t, gameDir, "AddonSync_Crafting", "@project-version@")

	require.NoError(t, e.checkStatus(context.Background()))

	kind, _, _ := e.game.InstalledVersion("AddonSync_Crafting")
	assert.Equal(t, game.VersionDev, kind)

	store := appdata.Load(e.game.AppDataPath(), testLogger())
	expr, _ := store.Expr(appdata.TypeAppInfo, "Global")
	assert.Contains(t, expr, `["AddonSync_Crafting"]="Dev"`)
}

func TestCheckStatus_MissingDataAddon(t *testing.T) {
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	e, st := newTestEngine(t, fake)
	require.NoError(t, st.SetGameDir(newGameDir(t)))

	var notified []string
	e.notify = notifyCollector(&notified)

	require.NoError(t, e.checkStatus(context.Background()))
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0], game.DataAddon)
	assert.NoFileExists(t, e.game.AppDataPath())
}

func TestCheckStatus_NoRealms(t *testing.T) {
	fake := newFakeAPI()
	e, _, _ := newCycleEngine(t, fake)

	var notified []string
	e.notify = notifyCollector(&notified)

	require.NoError(t, e.checkStatus(context.Background()))
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0], "realms")
	assert.NoFileExists(t, e.game.AppDataPath())
}

func TestSyncBackups(t *testing.T) {
	fake := newFakeAPI()
	fake.premium = true
	fake.index = map[string][]api.RemoteBackupInfo{
		"othersys~Acct": {{Timestamp: 1600000000, Keep: true}},
	}
	e, _, gameDir := newCycleEngine(t, fake)
	writeSavedVariables(t, gameDir, "Acct", "AddonSync.lua", "AddonSyncDB = {}\n")

	e.syncBackups(context.Background())

	// the new local backup went up under its remote name
	require.Len(t, fake.uploadedBackups, 1)
	for name := range fake.uploadedBackups {
		assert.Contains(t, name, e.settings.SystemID()+"~Acct~")
	}

	backups := e.Backups()
	require.Len(t, backups, 2)
	var localSeen, remoteSeen bool
	for _, b := range backups {
		switch {
		case b.IsLocal:
			localSeen = true
			assert.Equal(t, "Acct", b.Account)
		case b.IsRemote:
			remoteSeen = true
			assert.Equal(t, "othersys", b.SystemID)
			assert.True(t, b.Keep)
		}
	}
	assert.True(t, localSeen)
	assert.True(t, remoteSeen)
}

func TestUploadData_Sales(t *testing.T) {
	const accounting = `
AddonSyncAccountingDB = {
	["_scopeKeys"] = {
		["realm"] = { "Org" },
	},
	["r@Org"] = {
		["region"] = "US",
		["updateTime"] = 500,
		["sales"] = { "a,b,c" },
	},
}
`
	fake := newFakeAPI()
	e, _, gameDir := newCycleEngine(t, fake)
	writeSavedVariables(t, gameDir, "Acct", "AddonSync_Accounting.lua", accounting)

	e.uploadData(context.Background())
	assert.Contains(t, fake.uploadedSales, "US/Org/Acct")

	// a server copy at least as new suppresses the upload
	fake.salesLast["US/Org/Acct"] = 500
	fake.uploadedSales = map[string]any{}
	e.uploadData(context.Background())
	assert.Empty(t, fake.uploadedSales)
}

func TestValidSession_PullFailureIsIsolated(t *testing.T) {
	const accounting = `
AddonSyncAccountingDB = {
	["_scopeKeys"] = {
		["realm"] = { "Org" },
	},
	["r@Org"] = {
		["region"] = "US",
		["updateTime"] = 500,
		["sales"] = { "a,b,c" },
	},
}
`
	fake := newFakeAPI()
	fake.status = statusWithRealm()
	fake.auctionDB["region/5"] = "{itemB=2}"
	// realm data left unconfigured, so its download fails
	e, _, gameDir := newCycleEngine(t, fake)
	writeSavedVariables(t, gameDir, "Acct", "AddonSync_Accounting.lua", accounting)

	e.state = StateValidSession
	e.runFSM(context.Background())
	assert.Equal(t, StateSleeping, e.State())

	// the other scopes refreshed and the data file was stamped and saved
	store := appdata.Load(e.game.AppDataPath(), testLogger())
	assert.Zero(t, store.LastUpdate(appdata.TypeAuctionDBMarketData, "Org"))
	assert.Equal(t, int64(50), store.LastUpdate(appdata.TypeAuctionDBMarketData, "US"))
	expr, ok := store.Expr(appdata.TypeAppInfo, "Global")
	require.True(t, ok)
	assert.Contains(t, expr, `["lastSync"]=1700000000`)

	// the upload half still ran
	assert.Contains(t, fake.uploadedSales, "US/Org/Acct")
}

func TestRestoreBackup_RemoteOnly(t *testing.T) {
	fake := newFakeAPI()
	e, _, gameDir := newCycleEngine(t, fake)

	b := backup.Backup{
		SystemID:  "othersys",
		Account:   "Acct",
		Timestamp: time.Unix(1600000000, 0),
		IsRemote:  true,
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entry, err := w.Create("AddonSync.lua")
	require.NoError(t, err)
	_, err = entry.Write([]byte("AddonSyncDB = {}\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	fake.remoteArchives[b.RemoteArchiveName()] = buf.Bytes()

	require.NoError(t, e.RestoreBackup(context.Background(), b))

	restored := filepath.Join(gameDir, "WTF", "Account", "Acct", "SavedVariables", "AddonSync.lua")
	data, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, "AddonSyncDB = {}\n", string(data))
}

func TestRemoteBackups_SkipsMalformedKeys(t *testing.T) {
	out := remoteBackups(map[string][]api.RemoteBackupInfo{
		"sys~Acct":     {{Timestamp: 1600000000}},
		"no-separator": {{Timestamp: 1600000001}},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "sys", out[0].SystemID)
	assert.Equal(t, "Acct", out[0].Account)
	assert.True(t, out[0].Timestamp.Equal(time.Unix(1600000000, 0)))
}
