// Package backup creates, enumerates, expires, restores and reconciles
// archive snapshots of per-account addon state.
package backup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/addonsync/internal/common"
)

// localTimeLayout is the timestamp encoding inside local archive names.
const localTimeLayout = "20060102150405"

// accountNamePattern guards the reserved separator: an account name passing
// this can never contain common.BackupSeparator.
var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9#]+$`)

// Backup identifies one snapshot. Equality is (SystemID, Account,
// Timestamp); Keep and locality flags are merged during reconciliation.
type Backup struct {
	SystemID  string
	Account   string
	Timestamp time.Time
	IsLocal   bool
	IsRemote  bool
	Keep      bool
}

// Equal implements snapshot identity, ignoring locality and keep flags.
func (b Backup) Equal(other Backup) bool {
	return b.SystemID == other.SystemID &&
		b.Account == other.Account &&
		b.Timestamp.Equal(other.Timestamp)
}

// LocalArchiveName renders `account~YYYYMMDDHHMMSS.zip`.
func (b Backup) LocalArchiveName() string {
	return strings.Join([]string{b.Account, b.Timestamp.Format(localTimeLayout)}, common.BackupSeparator) + ".zip"
}

// RemoteArchiveName renders `systemID~account~unixTS.zip`.
func (b Backup) RemoteArchiveName() string {
	return strings.Join([]string{
		b.SystemID,
		b.Account,
		strconv.FormatInt(b.Timestamp.Unix(), 10),
	}, common.BackupSeparator) + ".zip"
}

// ArchiveName picks the remote form for remote-capable backups.
func (b Backup) ArchiveName() string {
	if b.IsRemote {
		return b.RemoteArchiveName()
	}
	return b.LocalArchiveName()
}

// ParseArchiveName reconstructs a Backup from an archive file name. Local
// names (one separator) get systemID filled in from the caller. Returns an
// error for anything that does not round-trip.
func ParseArchiveName(name, systemID string) (Backup, error) {
	if !strings.HasSuffix(name, ".zip") {
		return Backup{}, fmt.Errorf("not a zip archive: %s", name)
	}
	parts := strings.Split(strings.TrimSuffix(name, ".zip"), common.BackupSeparator)

	var b Backup
	switch len(parts) {
	case 2:
		ts, err := time.ParseInLocation(localTimeLayout, parts[1], time.Local)
		if err != nil {
			return Backup{}, fmt.Errorf("bad local timestamp in %s: %w", name, err)
		}
		b = Backup{SystemID: systemID, Account: parts[0], Timestamp: ts, IsLocal: true}
	case 3:
		unix, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return Backup{}, fmt.Errorf("bad remote timestamp in %s: %w", name, err)
		}
		b = Backup{SystemID: parts[0], Account: parts[1], Timestamp: time.Unix(unix, 0), IsRemote: true}
	default:
		return Backup{}, fmt.Errorf("unrecognized archive name: %s", name)
	}
	if !accountNamePattern.MatchString(b.Account) {
		return Backup{}, common.ErrInvalidAccountName
	}
	return b, nil
}

// Reconcile merges the remote index into the local list. Entries sharing
// identity are merged with the remote keep flag winning; unmatched remote
// entries are appended as remote-only records.
func Reconcile(local, remote []Backup) []Backup {
	merged := make([]Backup, len(local))
	copy(merged, local)

	for _, rb := range remote {
		matched := false
		for i := range merged {
			if merged[i].Equal(rb) {
				merged[i].Keep = rb.Keep
				merged[i].IsRemote = true
				matched = true
				break
			}
		}
		if !matched {
			rb.IsLocal = false
			rb.IsRemote = true
			merged = append(merged, rb)
		}
	}
	return merged
}
