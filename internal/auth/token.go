// Package auth turns a stored OAuth2 authorized-user token into an HTTP
// client for the Google APIs.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenFile is the authorized-user token produced by the installed-app OAuth
// flow. Field names follow the file written by the Google quickstarts.
type TokenFile struct {
	Token        string    `json:"token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Scopes       []string  `json:"scopes"`
	Expiry       time.Time `json:"expiry"`
}

// ReadTokenFile parses the token file at path.
func ReadTokenFile(path string) (*TokenFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ReadTokenFile: %w", err)
	}
	var tf TokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return nil, fmt.Errorf("ReadTokenFile: parsing %s: %w", path, err)
	}
	if tf.RefreshToken == "" && tf.accessToken() == "" {
		return nil, fmt.Errorf("ReadTokenFile: %s has neither access nor refresh token", path)
	}
	return &tf, nil
}

func (tf *TokenFile) accessToken() string {
	if tf.Token != "" {
		return tf.Token
	}
	return tf.AccessToken
}

// OAuthConfig builds the client configuration for refreshing the token.
func (tf *TokenFile) OAuthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if tf.TokenURI != "" {
		endpoint.TokenURL = tf.TokenURI
	}
	return &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       tf.Scopes,
	}
}

// OAuthToken returns the stored token; an expired access token is refreshed
// on first use. A refreshable token without a recorded expiry is treated as
// already expired.
func (tf *TokenFile) OAuthToken() *oauth2.Token {
	expiry := tf.Expiry
	if expiry.IsZero() && tf.RefreshToken != "" {
		expiry = time.Unix(0, 0)
	}
	return &oauth2.Token{
		AccessToken:  tf.accessToken(),
		RefreshToken: tf.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

// NewHTTPClient reads the token file and returns an authorized client.
func NewHTTPClient(ctx context.Context, tokenPath string) (*http.Client, error) {
	tf, err := ReadTokenFile(tokenPath)
	if err != nil {
		return nil, err
	}
	return tf.OAuthConfig().Client(ctx, tf.OAuthToken()), nil
}
