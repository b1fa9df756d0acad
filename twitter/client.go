// Package twitter wraps the provider's OAuth1 three-legged authorization and
// the two signed read calls this application needs: resolving who just
// authenticated, and fetching their most recent liked posts.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
	oauthTwitter "github.com/dghubble/oauth1/twitter"
)

const defaultAPIBaseURL = "https://api.twitter.com/1.1"

// Profile identifies the external account that completed authorization.
type Profile struct {
	ExternalID string `json:"id_str"`
	Username   string `json:"screen_name"`
}

// Post is one liked post as returned by the provider, newest first.
type Post struct {
	ExternalID string `json:"id_str"`
	Text       string `json:"text"`
}

// Client holds the application's consumer credentials. Per-user access
// tokens are passed into each call rather than held on the client, so one
// Client serves every session.
type Client struct {
	config     *oauth1.Config
	apiBaseURL string
	httpClient *http.Client
}

func NewClient(consumerKey, consumerSecret, callbackURL string) *Client {
	return &Client{
		config: &oauth1.Config{
			ConsumerKey:    consumerKey,
			ConsumerSecret: consumerSecret,
			CallbackURL:    callbackURL,
			Endpoint:       oauthTwitter.AuthorizeEndpoint,
		},
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RequestToken obtains a temporary request-token pair from the provider and
// the authorization URL the browser should be redirected to.
func (c *Client) RequestToken() (token, secret, authorizationURL string, err error) {
	token, secret, err = c.config.RequestToken()
	if err != nil {
		return "", "", "", fmt.Errorf("twitter: failed to obtain request token: %w", err)
	}
	authURL, err := c.config.AuthorizationURL(token)
	if err != nil {
		return "", "", "", fmt.Errorf("twitter: failed to build authorization URL: %w", err)
	}
	return token, secret, authURL.String(), nil
}

// AccessToken exchanges a verified request-token pair for the long-lived
// access-token pair stored on the account.
func (c *Client) AccessToken(requestToken, requestSecret, verifier string) (token, secret string, err error) {
	token, secret, err = c.config.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		return "", "", fmt.Errorf("twitter: access token exchange failed: %w", err)
	}
	return token, secret, nil
}

// VerifyCredentials resolves the external identity behind an access-token
// pair. Called once per callback to decide which account row to upsert.
func (c *Client) VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*Profile, error) {
	var profile Profile
	endpoint := c.apiBaseURL + "/account/verify_credentials.json"
	if err := c.signedGet(ctx, accessToken, accessSecret, endpoint, &profile); err != nil {
		return nil, err
	}
	if profile.ExternalID == "" {
		return nil, fmt.Errorf("twitter: verify_credentials returned no account id")
	}
	return &profile, nil
}

// Likes fetches the account's most recent liked posts, newest first as
// returned by the provider, capped at count.
func (c *Client) Likes(ctx context.Context, accessToken, accessSecret string, count int) ([]Post, error) {
	endpoint := c.apiBaseURL + "/favorites/list.json?" + url.Values{
		"count": []string{strconv.Itoa(count)},
	}.Encode()

	var posts []Post
	if err := c.signedGet(ctx, accessToken, accessSecret, endpoint, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// signedGet performs an OAuth1-signed GET against the provider API and
// decodes the JSON response into out.
func (c *Client) signedGet(ctx context.Context, accessToken, accessSecret, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("twitter: failed to create request: %w", err)
	}

	token := oauth1.NewToken(accessToken, accessSecret)
	signer := c.config.Client(oauth1.NoContext, token)
	signer.Timeout = c.httpClient.Timeout

	resp, err := signer.Do(req)
	if err != nil {
		return fmt.Errorf("twitter: request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twitter: %s returned status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("twitter: failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}
