package onedrive

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeGraph serves the token endpoint, a few Graph resources and upload URLs.
type fakeGraph struct {
	srv *httptest.Server

	mu              sync.Mutex
	users           map[string]string // access token -> user principal name
	codes           map[string]string // authorization code -> user principal name
	omitRefresh     bool
	firstRange      string
	uploadStatus    []int
	ranges          []string
	contentRanges   []string
	refreshCalls    atomic.Int32
	driveCalls      atomic.Int32
	lastRefreshSeen string
}

func newFakeGraph(t *testing.T) *fakeGraph {
	f := &fakeGraph{
		users:      map[string]string{},
		codes:      map[string]string{"good": "alice@example.com", "good-bob": "bob@example.com", "no-refresh": "alice@example.com"},
		firstRange: "0-",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGraph) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeGraph) issue(user string, withRefresh bool, n int32) map[string]interface{} {
	at := "at-" + user + "-" + string(rune('0'+n))
	f.users[at] = user
	resp := map[string]interface{}{"access_token": at, "token_type": "Bearer", "expires_in": 3600}
	if withRefresh {
		resp["refresh_token"] = "rt-" + user
	}
	return resp
}

func (f *fakeGraph) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/token":
		_ = r.ParseForm()
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			code := r.PostForm.Get("code")
			user, ok := f.codes[code]
			if !ok {
				f.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
				return
			}
			f.writeJSON(w, http.StatusOK, f.issue(user, code != "no-refresh", 0))
		case "refresh_token":
			n := f.refreshCalls.Add(1)
			rt := r.PostForm.Get("refresh_token")
			f.lastRefreshSeen = rt
			if !strings.HasPrefix(rt, "rt-") {
				f.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
				return
			}
			f.writeJSON(w, http.StatusOK, f.issue(strings.TrimPrefix(rt, "rt-"), !f.omitRefresh, n))
		}
	case r.URL.Path == "/me":
		user, ok := f.users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			f.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": map[string]string{"code": "InvalidAuthenticationToken"}})
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]string{"userPrincipalName": user})
	case r.URL.Path == "/me/drive":
		f.driveCalls.Add(1)
		if _, ok := f.users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]; !ok {
			f.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": map[string]string{"code": "InvalidAuthenticationToken"}})
			return
		}
		f.writeJSON(w, http.StatusOK, map[string]string{"id": "drive", "driveType": "personal"})
	case strings.HasSuffix(r.URL.Path, ":/createUploadSession"):
		f.writeJSON(w, http.StatusOK, map[string]interface{}{
			"uploadUrl":          f.srv.URL + "/upload/" + filepath.Base(strings.TrimSuffix(r.URL.Path, ":/createUploadSession")),
			"expirationDateTime": time.Now().Add(time.Hour).Format(time.RFC3339),
			"nextExpectedRanges": []string{f.firstRange},
		})
	case strings.HasPrefix(r.URL.Path, "/upload/"):
		f.contentRanges = append(f.contentRanges, r.Header.Get("Content-Range"))
		status := http.StatusAccepted
		if len(f.uploadStatus) > 0 {
			status, f.uploadStatus = f.uploadStatus[0], f.uploadStatus[1:]
		}
		switch {
		case status == http.StatusAccepted:
			next := ""
			if len(f.ranges) > 0 {
				next, f.ranges = f.ranges[0], f.ranges[1:]
			}
			f.writeJSON(w, status, map[string]interface{}{"nextExpectedRanges": []string{next}})
		case status < 300:
			f.writeJSON(w, status, map[string]interface{}{"id": "item", "name": "a.jpg", "size": 10})
		default:
			f.writeJSON(w, status, map[string]interface{}{"error": map[string]string{"code": "itemNotFound"}})
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGraph) config() conf.OneDrive {
	return conf.OneDrive{
		ClientID:     "client",
		ClientSecret: "secret",
		RootPath:     "/Telegram",
		GraphURL:     f.srv.URL,
		AuthURL:      f.srv.URL + "/authorize",
		TokenURL:     f.srv.URL + "/token",
	}
}

func setupDB(t *testing.T) {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Init(d))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T) (*Manager, *fakeGraph, *fakeClock) {
	setupDB(t)
	f := newFakeGraph(t)
	m := NewManager(f.config(), "https://localhost:8080/auth")
	clock := &fakeClock{now: time.Now()}
	m.now = clock.Now
	return m, f, clock
}
