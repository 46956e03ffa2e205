package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MihaiBojin/pyplyn/internal/model"
)

// BasicAuthenticator exchanges a Connector's username/password for a bearer
// token by POSTing credentials to <endpoint><LoginPath> as JSON, the way the
// teacher's PagerDuty client builds and issues its own authenticated
// requests (pagerduty_client.go doRequest). The password is read fresh via
// readPassword immediately before use and zeroed immediately after, per
// spec.md §5 password handling.
type BasicAuthenticator struct {
	// LoginPath is appended to the Connector's Endpoint to build the
	// authentication URL. Defaults to "/auth" when empty.
	LoginPath string
	// ReadPassword supplies a fresh copy of the connector's password; when
	// nil, PasswordBytes() is used directly.
	ReadPassword func(connector model.Connector) ([]byte, error)

	httpClient *http.Client
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate implements Authenticator.
func (a *BasicAuthenticator) Authenticate(ctx context.Context, connector model.Connector) (string, error) {
	client := a.httpClient
	if client == nil {
		client = &http.Client{
			Timeout:   connector.ConnectTimeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}},
		}
	}

	readPassword := a.ReadPassword
	if readPassword == nil {
		readPassword = func(c model.Connector) ([]byte, error) { return c.PasswordBytes(), nil }
	}

	password, err := readPassword(connector)
	if err != nil {
		return "", fmt.Errorf("reading password for connector %s: %w", connector.ID, err)
	}
	defer model.Zero(password)

	loginPath := a.LoginPath
	if loginPath == "" {
		loginPath = "/auth"
	}

	payload, err := json.Marshal(loginRequest{Username: connector.Username, Password: string(password)})
	if err != nil {
		return "", fmt.Errorf("marshaling login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, connector.Endpoint+loginPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request to %s failed: %w", connector.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("login rejected for connector %s: %w", connector.ID, model.ErrUnauthorized)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("login failed for connector %s: status %d", connector.ID, resp.StatusCode)
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding login response for connector %s: %w", connector.ID, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("login response for connector %s carried no token: %w", connector.ID, model.ErrUnauthorized)
	}
	return out.Token, nil
}
