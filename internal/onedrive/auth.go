package onedrive

import (
	"context"
	"strings"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requests read/write access to own and shared files, offline access
// for refresh tokens, and the profile to resolve the user name.
var Scopes = []string{"Files.ReadWrite.All", "offline_access", "User.Read"}

const defaultTokenLifetime = time.Hour

type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type tokenResp struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type authProvider struct {
	oauth *oauth2.Config
	http  *resty.Client
}

func newAuthProvider(c conf.OneDrive, redirectURI string) *authProvider {
	tenant := c.Tenant
	if tenant == "" {
		tenant = "common"
	}
	endpoint := microsoft.AzureADEndpoint(tenant)
	if c.AuthURL != "" {
		endpoint.AuthURL = c.AuthURL
	}
	if c.TokenURL != "" {
		endpoint.TokenURL = c.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &authProvider{
		oauth: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
		},
		http: newRestyClient(),
	}
}

func (p *authProvider) codeAuthURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *authProvider) loginWithCode(ctx context.Context, code string, now time.Time) (*TokenResponse, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errs.NewAuth(err, "failed to get onedrive token response when login with code")
	}
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenLifetime)
	}
	return &TokenResponse{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: expiry}, nil
}

// loginWithRefreshToken redeems a refresh token. It talks to the token
// endpoint directly: oauth2's token source silently keeps the old refresh
// token when the provider omits a new one, which must be reported instead.
func (p *authProvider) loginWithRefreshToken(ctx context.Context, refreshToken string, now time.Time) (*TokenResponse, error) {
	var resp tokenResp
	res, err := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     p.oauth.ClientID,
			"client_secret": p.oauth.ClientSecret,
			"redirect_uri":  p.oauth.RedirectURL,
			"scope":         strings.Join(p.oauth.Scopes, " "),
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(p.oauth.Endpoint.TokenURL)
	if err != nil {
		return nil, errs.NewAuth(err, "failed to get refresh token response when login with refresh token")
	}
	if res.IsError() || resp.AccessToken == "" {
		return nil, errs.NewAuth(nil, "token endpoint answered %d: %s %s", res.StatusCode(), resp.Error, resp.ErrorDescription)
	}
	expiresIn := time.Duration(resp.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}
	return &TokenResponse{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken, Expiry: now.Add(expiresIn)}, nil
}
