// Package engine runs the background sync worker: a small state machine
// that logs in, performs one sync cycle per session, sleeps and starts
// over. All remote traffic and local game-directory mutation funnels
// through here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/addonsync/internal/api"
	"github.com/dmitrijs2005/addonsync/internal/backup"
	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/config"
	"github.com/dmitrijs2005/addonsync/internal/cryptox"
	"github.com/dmitrijs2005/addonsync/internal/game"
	"github.com/dmitrijs2005/addonsync/internal/logging"
	"github.com/dmitrijs2005/addonsync/internal/notify"
	"github.com/dmitrijs2005/addonsync/internal/settings"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// RemoteAPI is the slice of api.Client the worker needs. An interface so
// tests can run whole cycles against a fake server.
type RemoteAPI interface {
	Login(ctx context.Context, emailHash, passwordHash string) error
	Logout()
	IsPremium() bool
	Status(ctx context.Context) (*api.Status, error)
	Addon(ctx context.Context, name string) ([]byte, error)
	AuctionDB(ctx context.Context, kind, id string) (string, error)
	Shopping(ctx context.Context, id string) (string, error)
	AppManifest(ctx context.Context) ([]api.AppManifestFile, error)
	AppFile(ctx context.Context, path string) ([]byte, error)
	BackupIndex(ctx context.Context) (map[string][]api.RemoteBackupInfo, error)
	UploadBackup(ctx context.Context, name string, data []byte) error
	DownloadBackup(ctx context.Context, name string) ([]byte, error)
	Log(ctx context.Context, data string, isCrash bool) error
	BlackMarket(ctx context.Context, region, realm string, data any, updateTime int64) (bool, error)
	SalesLastUpload(ctx context.Context, region, realm, account string) (int64, error)
	UploadSales(ctx context.Context, region, realm, account string, data any) error
	Groups(ctx context.Context, account, profile string, data any, updateTime int64) (bool, error)
	Analytics(ctx context.Context, account string, data any, updateTime int64) (bool, error)
}

type loginRequest struct {
	Email    string
	Password string
}

// Engine is the sync worker. One instance per process; Run is the only
// long-lived goroutine, everything else pokes it through SubmitLogin and
// StopSleeping.
type Engine struct {
	cfg      *config.Config
	settings *settings.Settings
	api      RemoteAPI
	game     *game.Helper
	backups  *backup.Manager
	notify   notify.Sink
	log      logging.Logger

	mu         sync.Mutex
	state      State
	backupList []backup.Backup

	events    *rendezvous
	sleepLeft atomic.Int64 // seconds

	prevCrashed      bool
	restartForUpdate bool
	appDir           string

	// injectable for tests
	now       func() time.Time
	randInt   func(n int) int
	sleepStep func(ctx context.Context) bool
}

func New(cfg *config.Config, st *settings.Settings, client RemoteAPI, helper *game.Helper,
	backups *backup.Manager, sink notify.Sink, log logging.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		settings:  st,
		api:       client,
		game:      helper,
		backups:   backups,
		notify:    sink,
		log:       log,
		state:     StateInit,
		now:       time.Now,
		randInt:   rand.Intn,
		sleepStep: defaultSleepStep,
	}
	e.events = newRendezvous(log)
	if exe, err := os.Executable(); err == nil {
		e.appDir = filepath.Dir(exe)
	}
	// a game-directory change should take effect on the next cycle, not
	// after a full sleep interval
	st.Subscribe(func(key string) {
		if key == settings.KeyGameDir {
			e.StopSleeping()
		}
	})
	return e
}

func defaultSleepStep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(time.Second):
		return true
	}
}

// State returns the worker's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Backups returns the merged local and remote backup list from the last
// completed cycle.
func (e *Engine) Backups() []backup.Backup {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]backup.Backup, len(e.backupList))
	copy(out, e.backupList)
	return out
}

// setState applies a lifecycle transition. Equal-state calls are no-ops;
// an illegal transition is logged, leaves the state untouched and reports
// common.ErrInvalidTransition.
func (e *Engine) setState(ctx context.Context, to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == to {
		return nil
	}
	if !ValidTransition(e.state, to) {
		e.log.Error(ctx, "illegal state transition", "from", e.state.String(), "to", to.String())
		return common.ErrInvalidTransition
	}
	e.log.Info(ctx, "state change", "from", e.state.String(), "to", to.String())
	e.state = to
	return nil
}

// ValidateCredentials checks login input before any of it is stored or
// sent over the wire.
func ValidateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return common.ErrInvalidEmail
	}
	if password == "" {
		return common.ErrEmptyPassword
	}
	return nil
}

// SubmitLogin validates credentials and hands them to a worker waiting in
// the logged-out state. Validation happens here so malformed input never
// produces network traffic.
func (e *Engine) SubmitLogin(email, password string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if !e.events.fire(WaitLogin, loginRequest{Email: email, Password: password}) {
		return fmt.Errorf("no login pending")
	}
	return nil
}

// RestoreBackup extracts a snapshot over the account's save files,
// downloading remote-only snapshots first. The caller verifies the game
// client is not running.
func (e *Engine) RestoreBackup(ctx context.Context, b backup.Backup) error {
	dest := e.game.SavedVariablesDir(b.Account)
	if b.IsLocal {
		return e.backups.Restore(b, dest)
	}
	data, err := e.api.DownloadBackup(ctx, b.RemoteArchiveName())
	if err != nil {
		return err
	}
	return e.backups.RestoreBytes(data, dest)
}

// StopSleeping cuts the current sleep short so the next cycle starts
// immediately.
func (e *Engine) StopSleeping() {
	e.sleepLeft.Store(0)
}

// Run drives the state machine until the context ends or a staged
// self-update requires a restart. The close reason is presumed crashed for
// the whole run and only rewritten on a clean exit, so an unclean death
// leaves the crash marker behind for the next start to find.
func (e *Engine) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error(ctx, "sync worker panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("sync worker panicked: %v", r)
		}
	}()

	prev := e.settings.CloseReason()
	e.prevCrashed = prev == common.CloseReasonCrashed
	if prev == common.CloseReasonUpdate {
		_ = e.notify.Notify("AddonSync", "Update installed successfully.", false)
	}
	if err := e.settings.SetCloseReason(common.CloseReasonCrashed); err != nil {
		return err
	}

	for ctx.Err() == nil && !e.restartForUpdate {
		e.runFSM(ctx)
		e.countdown(ctx)
	}

	reason := common.CloseReasonNormal
	if e.restartForUpdate {
		reason = common.CloseReasonUpdate
	}
	return e.settings.SetCloseReason(reason)
}

// countdown sleeps off sleepLeft one second at a time, so StopSleeping and
// context cancellation take effect promptly.
func (e *Engine) countdown(ctx context.Context) {
	for e.sleepLeft.Load() > 0 {
		if !e.sleepStep(ctx) {
			return
		}
		e.sleepLeft.Add(-1)
	}
}

func (e *Engine) runFSM(ctx context.Context) {
	switch e.State() {
	case StateInit:
		e.setState(ctx, StateLoggedOut)
	case StateLoggedOut:
		e.handleLoggedOut(ctx)
	case StatePendingNewSession:
		e.handlePendingNewSession(ctx)
	case StateValidSession:
		e.handleValidSession(ctx)
	case StateSleeping:
		e.setState(ctx, StatePendingNewSession)
	}
}

func (e *Engine) handleLoggedOut(ctx context.Context) {
	if e.settings.Email() == "" || e.settings.PasswordHash() == "" {
		payload, ok := e.events.wait(ctx, WaitLogin)
		if !ok {
			return
		}
		req := payload.(loginRequest)
		if err := e.settings.SetEmail(req.Email); err != nil {
			e.log.Error(ctx, "failed to store email", "err", err)
			return
		}
		hash := cryptox.HashPassword(req.Password, api.PasswordSalt())
		if err := e.settings.SetPasswordHash(hash); err != nil {
			e.log.Error(ctx, "failed to store credentials", "err", err)
			return
		}
	}

	switch err := e.login(ctx); {
	case err == nil:
		e.setState(ctx, StateValidSession)
	case isPermanent(err):
		e.log.Warn(ctx, "login rejected", "err", err)
		_ = e.notify.Notify("AddonSync", "Invalid email or password.", true)
		_ = e.settings.ClearCredentials()
	default:
		e.log.Warn(ctx, "login failed, will retry", "err", err)
		e.sleepRandom(30, 90)
	}
}

func (e *Engine) handlePendingNewSession(ctx context.Context) {
	switch err := e.login(ctx); {
	case err == nil:
		e.setState(ctx, StateValidSession)
	case isPermanent(err):
		e.log.Warn(ctx, "session renewal rejected", "err", err)
		_ = e.notify.Notify("AddonSync", "You have been logged out. Please log in again.", true)
		_ = e.settings.ClearCredentials()
		e.setState(ctx, StateLoggedOut)
	default:
		e.log.Warn(ctx, "session renewal failed, will retry", "err", err)
		e.sleepRandom(30, 90)
	}
}

func (e *Engine) handleValidSession(ctx context.Context) {
	// jitter spreads clients out so the server sees no thundering herd
	e.sleepLeft.Store(int64(e.cfg.StatusCheckInterval/time.Second) + int64(e.randInt(91)))

	staged, err := e.selfUpdate(ctx)
	if err != nil {
		e.log.Warn(ctx, "self-update check failed", "err", err)
	}
	if staged {
		_ = e.notify.Notify("AddonSync", "An update has been downloaded and will be applied on restart.", false)
		e.restartForUpdate = true
		e.StopSleeping()
		return
	}

	e.uploadCrashLog(ctx)

	if !e.game.HasValidGameDir() {
		_ = e.notify.Notify("AddonSync", "Game directory is missing or invalid. Please update it.", true)
	} else {
		// a transient download failure never blocks the upload half
		if err := e.checkStatus(ctx); err != nil && e.sessionLost(ctx, err) {
			return
		}
		e.uploadData(ctx)
	}
	e.setState(ctx, StateSleeping)
}

// sessionLost drops to LoggedOut on a permanent API error. Transient
// failures just end the cycle early; the next session retries.
func (e *Engine) sessionLost(ctx context.Context, err error) bool {
	if isPermanent(err) {
		e.log.Warn(ctx, "session invalidated by server", "err", err)
		e.api.Logout()
		e.setState(ctx, StateLoggedOut)
		return true
	}
	e.log.Warn(ctx, "sync cycle failed", "err", err)
	return false
}

func (e *Engine) login(ctx context.Context) error {
	return e.api.Login(ctx, cryptox.HashEmail(e.settings.Email()), e.settings.PasswordHash())
}

// uploadCrashLog sends the rotated log from a run that ended with a crash
// marker. Runs at most once per process start.
func (e *Engine) uploadCrashLog(ctx context.Context) {
	if !e.prevCrashed {
		return
	}
	e.prevCrashed = false
	data, err := os.ReadFile(e.cfg.LogPath() + ".1")
	if err != nil {
		return
	}
	if err := e.api.Log(ctx, string(data), true); err != nil {
		e.log.Warn(ctx, "crash log upload failed", "err", err)
	}
}

func (e *Engine) sleepRandom(minSec, maxSec int) {
	e.sleepLeft.Store(int64(minSec + e.randInt(maxSec-minSec+1)))
}

func isPermanent(err error) bool {
	var perm *api.PermanentError
	return errors.As(err, &perm)
}
