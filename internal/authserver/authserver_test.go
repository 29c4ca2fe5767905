package authserver

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversCode(t *testing.T) {
	b := NewBroker()
	ch := b.Expect("s1")

	go func() {
		assert.NoError(t, b.Publish("s1", "code-1"))
	}()
	code, err := b.Wait(context.Background(), "s1", ch)
	require.NoError(t, err)
	assert.Equal(t, "code-1", code)
	assert.Equal(t, 0, b.Pending())
	assert.ErrorIs(t, b.Publish("s1", "again"), ErrUnknownState)
}

func TestBrokerWaitTimesOut(t *testing.T) {
	b := NewBroker()
	ch := b.Expect("s1")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Wait(ctx, "s1", ch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, b.Pending())
}

func TestCallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := NewBroker()
	r := gin.New()
	r.GET("/auth", Callback(b))
	ch := b.Expect("known")

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing code", "/auth?state=known", http.StatusBadRequest},
		{"provider error", "/auth?error=access_denied", http.StatusBadRequest},
		{"unknown state", "/auth?code=c&state=other", http.StatusNotFound},
		{"known state", "/auth?code=c1&state=known", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.query, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
	assert.Equal(t, "c1", <-ch)
}

func TestSelfSignedCert(t *testing.T) {
	certPEM, keyPEM, err := SelfSignedCert([]string{"127.0.0.1", "localhost"})
	require.NoError(t, err)
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, leaf.DNSNames)
	require.Len(t, leaf.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", leaf.IPAddresses[0].String())
	assert.NoError(t, leaf.VerifyHostname("localhost"))
}

func TestLoadCertificateFromFiles(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")

	generated, err := LoadCertificate(certFile, keyFile)
	require.NoError(t, err)
	require.NotEmpty(t, generated.Certificate)

	certPEM, keyPEM, err := SelfSignedCert([]string{"example.internal"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(certFile, certPEM, 0600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))

	loaded, err := LoadCertificate(certFile, keyFile)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(loaded.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"example.internal"}, leaf.DNSNames)
}
