package api

// Session is the server-issued login state. The token is opaque and only
// ever echoed back as a query parameter.
type Session struct {
	Token     string `json:"session"`
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	IsPremium bool   `json:"isPremium"`
}

type AppInfo struct {
	News    string `json:"news"`
	Version int64  `json:"version"`
}

type AddonInfo struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

type RealmInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Region       string `json:"region"`
	MasterID     int64  `json:"masterId"`
	LastModified int64  `json:"lastModified"`
}

type RegionInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LastModified int64  `json:"lastModified"`
}

type AddonMessage struct {
	ID  int64  `json:"id"`
	Msg string `json:"msg"`
}

// Status is the per-cycle snapshot the server returns: latest addon
// versions plus remote modification times for every realm and region the
// account tracks.
type Status struct {
	AppInfo      AppInfo      `json:"appInfo"`
	Addons       []AddonInfo  `json:"addons"`
	Realms       []RealmInfo  `json:"realms"`
	Regions      []RegionInfo `json:"regions"`
	AddonMessage AddonMessage `json:"addonMessage"`
}

// AppManifestFile is one entry of the self-update manifest.
type AppManifestFile struct {
	Path string `json:"path"`
	MD5  string `json:"md5"`
}

// RemoteBackupInfo is one entry of the remote backup index, grouped under a
// "systemID~account" key.
type RemoteBackupInfo struct {
	Timestamp int64 `json:"timestamp"`
	Keep      bool  `json:"keep"`
}
