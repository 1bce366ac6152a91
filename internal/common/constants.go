package common

// BackupSeparator joins the fields of a backup archive name. Account names
// are validated to never contain it.
const BackupSeparator = "~"

// Close reasons persisted in settings on shutdown. A "crashed" close reason
// makes the next launch upload the previous run's log.
const (
	CloseReasonUnknown = "unknown"
	CloseReasonNormal  = "normal"
	CloseReasonCrashed = "crashed"
	CloseReasonUpdate  = "update"
)
