package onedrive

import (
	"context"
	"sync"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Manager owns the live Graph client and the current session. Both sit
// behind one RWMutex: uploads and authorization probes read, login, refresh
// and logout write, and writers always swap in a complete new client.
type Manager struct {
	mu           sync.RWMutex
	client       *Client
	session      *model.Session
	tempRootPath string

	auth            *authProvider
	graphURL        string
	defaultRootPath string
	now             func() time.Time
}

func NewManager(c conf.OneDrive, redirectURI string) *Manager {
	return &Manager{
		client:          NewClient(c.GraphURL, ""),
		auth:            newAuthProvider(c, redirectURI),
		graphURL:        c.GraphURL,
		defaultRootPath: utils.FixAndCleanPath(c.RootPath),
		now:             time.Now,
	}
}

func (m *Manager) log() *log.Entry {
	return utils.Log.WithField("component", "onedrive")
}

// AuthURL is the interactive authorization URL carrying state.
func (m *Manager) AuthURL(state string) string {
	return m.auth.codeAuthURL(state)
}

// Login exchanges an authorization code and makes the resulting user
// current. Nothing in memory changes unless the session was saved.
func (m *Manager) Login(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	tr, err := m.auth.loginWithCode(ctx, code, now)
	if err != nil {
		return err
	}
	if tr.RefreshToken == "" {
		return errs.NewAuth(nil, "failed to receive onedrive refresh token when login with code")
	}

	client := NewClient(m.graphURL, tr.AccessToken)
	user, err := client.Me(ctx)
	if err != nil {
		return classify(err, "failed to resolve onedrive user")
	}
	username := user.Username()

	session := &model.Session{
		Username:            username,
		AccessToken:         tr.AccessToken,
		RefreshToken:        tr.RefreshToken,
		ExpirationTimestamp: tr.Expiry.Unix(),
		RootPath:            m.defaultRootPath,
	}
	stored, err := db.GetSessionByUsername(username)
	switch {
	case err == nil && stored.RootPath != "":
		session.RootPath = stored.RootPath
	case err != nil && !errors.Is(err, errs.UserNotFound):
		return err
	}
	if err := db.SaveSession(session); err != nil {
		return err
	}
	if m.session == nil || m.session.Username != username {
		if err := db.SetCurrentUser(username); err != nil {
			return err
		}
	}
	session.IsCurrent = true
	m.session = session
	m.client = client
	m.log().Infof("onedrive user %s logged in", username)
	return nil
}

// AutoLogin restores the stored current session by redeeming its refresh
// token. Failing only means an interactive login is needed later.
func (m *Manager) AutoLogin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := db.GetCurrentSession()
	if err != nil {
		return err
	}
	if err := m.redeemLocked(ctx, session); err != nil {
		return err
	}
	m.log().Infof("onedrive user %s restored", session.Username)
	return nil
}

// RefreshAccessToken redeems the refresh token when the access token has
// expired. An unexpired session costs no network call.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	if !m.isExpired() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return errs.NewAuth(errs.NotAuthorized, "no onedrive session to refresh")
	}
	if !m.session.IsExpired(m.now()) {
		// refreshed by a concurrent caller
		return nil
	}
	return m.redeemLocked(ctx, m.session.Clone())
}

func (m *Manager) redeemLocked(ctx context.Context, session *model.Session) error {
	now := m.now()
	tr, err := m.auth.loginWithRefreshToken(ctx, session.RefreshToken, now)
	if err != nil {
		return err
	}
	if tr.RefreshToken == "" {
		return errs.NewAuth(nil, "failed to receive onedrive refresh token when login with refresh token")
	}
	session.AccessToken = tr.AccessToken
	session.RefreshToken = tr.RefreshToken
	session.ExpirationTimestamp = tr.Expiry.Unix()
	if err := db.SaveSession(session); err != nil {
		return err
	}
	m.session = session
	m.client = NewClient(m.graphURL, session.AccessToken)
	return nil
}

func (m *Manager) isExpired() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.session.IsExpired(m.now())
}

// IsAuthorized refreshes an expired token on a best-effort basis and then
// probes the drive. Errors only ever show up as false.
func (m *Manager) IsAuthorized(ctx context.Context) bool {
	if m.isExpired() {
		if err := m.RefreshAccessToken(ctx); err != nil {
			m.log().Debugf("refresh before authorization check failed: %+v", err)
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil || !m.client.Authenticated() {
		return false
	}
	if _, err := m.client.GetDrive(ctx); err != nil {
		m.log().Debugf("onedrive authorization check failed: %+v", err)
		return false
	}
	return true
}

// Logout removes username, or the current user when nil, and rebuilds the
// client from whichever session is current afterwards.
func (m *Manager) Logout(ctx context.Context, username *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := db.RemoveUser(username)
	if err != nil {
		if errors.Is(err, errs.NoUserLeft) {
			m.session = nil
			m.client = NewClient(m.graphURL, "")
		}
		return err
	}
	m.session = next
	m.client = NewClient(m.graphURL, next.AccessToken)
	return nil
}

// SwitchUser makes another stored user current.
func (m *Manager) SwitchUser(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := db.SetCurrentUser(username); err != nil {
		return err
	}
	session, err := db.GetCurrentSession()
	if err != nil {
		return err
	}
	m.session = session
	m.client = NewClient(m.graphURL, session.AccessToken)
	return nil
}

func (m *Manager) Usernames() ([]string, error) {
	return db.GetUsernames()
}

func (m *Manager) CurrentUsername() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.Username
}

// RootPath is the upload directory: the temporary override when useTemp is
// set and one exists, otherwise the user's directory or the configured one.
func (m *Manager) RootPath(useTemp bool) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if useTemp && m.tempRootPath != "" {
		return m.tempRootPath
	}
	if m.session != nil && m.session.RootPath != "" {
		return m.session.RootPath
	}
	return m.defaultRootPath
}

func (m *Manager) SetRootPath(ctx context.Context, rootPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return errs.NewAuth(errs.NotAuthorized, "cannot set root path")
	}
	session := m.session.Clone()
	session.RootPath = utils.FixAndCleanPath(rootPath)
	if err := db.SaveSession(session); err != nil {
		return err
	}
	m.session = session
	return nil
}

func (m *Manager) ResetRootPath(ctx context.Context) error {
	return m.SetRootPath(ctx, m.defaultRootPath)
}

func (m *Manager) SetTempRootPath(rootPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempRootPath = utils.FixAndCleanPath(rootPath)
}

func (m *Manager) CancelTempRootPath() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tempRootPath = ""
}

func (m *Manager) TempRootPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tempRootPath
}
