package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

type PortTokenSource struct {
	ClientID     string
	ClientSecret string
	Endpoint     string
	HTTPClient   *http.Client
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

func newTokenSource(clientID, clientSecret, baseURL string) oauth2.TokenSource {
	return &PortTokenSource{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     baseURL,
		HTTPClient:   http.DefaultClient,
	}
}

func (ts *PortTokenSource) Token() (*oauth2.Token, error) {
	reqBody := strings.NewReader(fmt.Sprintf(`{"clientId":"%s","clientSecret":"%s"}`, ts.ClientID, ts.ClientSecret))
	req, err := http.NewRequest("POST", fmt.Sprintf("%s/v1/auth/access_token", ts.Endpoint), reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("port auth failed: status %d", resp.StatusCode)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}

	expiry := time.Now().Add(1 * time.Hour)
	if tokenResp.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}
