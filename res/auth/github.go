package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const (
	githubAPIURL = "https://api.github.com"

	providerCallTimeout = 10 * time.Second
)

type githubProvider struct {
	oauthConfig oauth2.Config
	apiURL      string

	httpClient *http.Client
}

// NewGitHub builds the production GitHub provider client.
func NewGitHub(clientID, clientSecret, redirectURL string) *githubProvider {
	return newGitHubProvider(clientID, clientSecret, redirectURL, githuboauth.Endpoint, githubAPIURL)
}

// NewGitHubWithEndpoints points the client at alternate provider URLs
// (GitHub Enterprise deployments, provider stubs in tests).
func NewGitHubWithEndpoints(clientID, clientSecret, redirectURL, authURL, tokenURL, apiURL string) *githubProvider {
	endpoint := oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	return newGitHubProvider(clientID, clientSecret, redirectURL, endpoint, apiURL)
}

func newGitHubProvider(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint, apiURL string) *githubProvider {
	return &githubProvider{
		oauthConfig: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user"},
			Endpoint:     endpoint,
		},
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: providerCallTimeout},
	}
}

func (gh *githubProvider) AuthCodeURL(state string) string {
	return gh.oauthConfig.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token. Any non-200
// response, transport error or response without an access_token field
// comes back as an error.
func (gh *githubProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, gh.httpClient)

	tok, err := gh.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	return tok.AccessToken, nil
}

// FetchProfile loads the authenticated user's profile. A 401/403 response
// maps to ErrTokenRejected so callers can distinguish a revoked token from
// a transient provider outage.
func (gh *githubProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gh.apiURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := gh.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenRejected
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch returned status %d", resp.StatusCode)
	}

	var body struct {
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("malformed profile response: %w", err)
	}
	if body.Login == "" {
		return nil, fmt.Errorf("profile response missing login")
	}

	// GitHub reports null for users who never set a display name.
	if body.Name == "" {
		body.Name = body.Login
	}

	return &Profile{Login: body.Login, Name: body.Name}, nil
}
