package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GitHub OAuth app identity used by the Copilot chat integration.
const (
	copilotClientID = "Iv1.b507a08c87ecfe98"
	deviceScope     = "read:user"
)

const (
	defaultDeviceCodeURL  = "https://github.com/login/device/code"
	defaultAccessTokenURL = "https://github.com/login/oauth/access_token"
	defaultCopilotAPIURL  = "https://api.github.com/copilot_internal/v2/token"
)

// Headers the Copilot backend expects on every request.
const (
	userAgent            = "GitHubCopilotChat/0.26.7"
	editorVersion        = "vscode/1.99.3"
	editorPluginVersion  = "copilot-chat/0.26.7"
	copilotIntegrationID = "vscode-chat"
)

// ErrNotAuthenticated is returned when an operation needs a stored GitHub
// credential and none exists.
var ErrNotAuthenticated = errors.New("not authenticated with GitHub Copilot")

// ErrAccessDenied is returned when the user rejects the device
// authorization request.
var ErrAccessDenied = errors.New("authorization denied by user")

// ErrDeviceCodeExpired is returned when the device code lapses before the
// user completes authorization.
var ErrDeviceCodeExpired = errors.New("device code expired")

// DeviceAuthorization is the pending state of a device flow: the code the
// user must enter and where to enter it.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// DeviceFlow drives GitHub's OAuth device authorization and exchanges the
// resulting GitHub token for short-lived Copilot access tokens.
type DeviceFlow struct {
	store  *Store
	client *http.Client

	deviceCodeURL  string
	accessTokenURL string
	copilotAPIURL  string

	now func() time.Time
}

// NewDeviceFlow returns a flow persisting credentials through store.
func NewDeviceFlow(store *Store) *DeviceFlow {
	return &DeviceFlow{
		store:          store,
		client:         &http.Client{Timeout: 30 * time.Second},
		deviceCodeURL:  defaultDeviceCodeURL,
		accessTokenURL: defaultAccessTokenURL,
		copilotAPIURL:  defaultCopilotAPIURL,
		now:            time.Now,
	}
}

// Authorize starts a device flow and returns the code the user must enter
// at the verification URI.
func (f *DeviceFlow) Authorize(ctx context.Context) (*DeviceAuthorization, error) {
	body := map[string]string{
		"client_id": copilotClientID,
		"scope":     deviceScope,
	}
	var auth DeviceAuthorization
	if err := f.postJSON(ctx, f.deviceCodeURL, body, &auth); err != nil {
		return nil, fmt.Errorf("request device code: %w", err)
	}
	if auth.Interval <= 0 {
		auth.Interval = 5
	}
	return &auth, nil
}

// Poll asks GitHub once whether the user has completed authorization.
// It returns the granted GitHub token, or done=false while authorization
// is still pending.
func (f *DeviceFlow) Poll(ctx context.Context, deviceCode string) (token string, done bool, err error) {
	body := map[string]string{
		"client_id":   copilotClientID,
		"device_code": deviceCode,
		"grant_type":  "urn:ietf:params:oauth:grant-type:device_code",
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := f.postJSON(ctx, f.accessTokenURL, body, &resp); err != nil {
		return "", false, fmt.Errorf("poll device flow: %w", err)
	}
	switch resp.Error {
	case "":
	case "authorization_pending", "slow_down":
		return "", false, nil
	case "expired_token":
		return "", false, ErrDeviceCodeExpired
	case "access_denied":
		return "", false, ErrAccessDenied
	default:
		return "", false, fmt.Errorf("device flow error: %s", resp.Error)
	}
	if resp.AccessToken == "" {
		return "", false, nil
	}
	return resp.AccessToken, true, nil
}

// Wait polls until the user completes authorization, the device code
// expires, or ctx is cancelled. On success the GitHub token is persisted
// as an oauth credential under the github-copilot provider.
func (f *DeviceFlow) Wait(ctx context.Context, auth *DeviceAuthorization) error {
	interval := time.Duration(auth.Interval) * time.Second
	deadline := f.now().Add(time.Duration(auth.ExpiresIn) * time.Second)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if auth.ExpiresIn > 0 && f.now().After(deadline) {
			return ErrDeviceCodeExpired
		}
		token, done, err := f.Poll(ctx, auth.DeviceCode)
		if err != nil {
			return err
		}
		if !done {
			continue
		}
		return f.store.Set("github-copilot", Credential{
			Type:    CredentialOAuth,
			Refresh: token,
		})
	}
}

// AccessToken exchanges the stored GitHub token for a Copilot access token.
func (f *DeviceFlow) AccessToken(ctx context.Context, githubToken string) (token string, expires int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.copilotAPIURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+githubToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Editor-Version", editorVersion)
	req.Header.Set("Editor-Plugin-Version", editorPluginVersion)
	req.Header.Set("Copilot-Integration-Id", copilotIntegrationID)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("mint copilot token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", 0, fmt.Errorf("mint copilot token: status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode copilot token: %w", err)
	}
	return out.Token, out.ExpiresAt, nil
}

// GetAccessToken returns a valid Copilot access token, minting and
// persisting a fresh one when the cached token is expired or force is
// set. An unexpired cached token is returned without any network call.
func (f *DeviceFlow) GetAccessToken(ctx context.Context, force bool) (string, error) {
	cred, ok, err := f.store.Get("github-copilot")
	if err != nil {
		return "", err
	}
	if !ok || cred.Type != CredentialOAuth || cred.Refresh == "" {
		return "", ErrNotAuthenticated
	}
	if !force && cred.Access != "" && f.now().UnixMilli() < cred.Expires {
		return cred.Access, nil
	}
	token, expires, err := f.AccessToken(ctx, cred.Refresh)
	if err != nil {
		return "", err
	}
	cred.Access = token
	cred.Expires = expires * 1000
	if err := f.store.Set("github-copilot", cred); err != nil {
		return "", err
	}
	return token, nil
}

func (f *DeviceFlow) postJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
