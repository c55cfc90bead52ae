package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/port-labs/port-sync-engine/pkg/config"
	"github.com/port-labs/port-sync-engine/pkg/goutils"
)

type (
	Option     func(*PortClient)
	PortClient struct {
		Client                       *resty.Client
		ClientID                     string
		ClientSecret                 string
		DeleteDependents             bool
		CreateMissingRelatedEntities bool
	}
)

var (
	cachedTokenSource oauth2.TokenSource
	tokenSourceMu     sync.RWMutex
)

func New(applicationConfig *config.ApplicationConfiguration, opts ...Option) *PortClient {
	c := &PortClient{
		Client: resty.New().
			SetBaseURL(applicationConfig.PortBaseURL).
			SetRetryCount(5).
			SetRetryWaitTime(300).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return goutils.IsRetryableStatusCode(r.StatusCode())
			}),
	}

	WithClientID(applicationConfig.PortClientId)(c)
	WithClientSecret(applicationConfig.PortClientSecret)(c)
	WithHeader("User-Agent", fmt.Sprintf("port-sync-engine/^0.1.0 (statekey/%s)", applicationConfig.StateKey))(c)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *PortClient) Authenticate(ctx context.Context, clientID, clientSecret string) (string, error) {
	token, err := getToken(clientID, clientSecret, c.Client.BaseURL)

	if err != nil {
		return "", fmt.Errorf("error getting token: %s", err.Error())
	}
	c.Client.SetAuthToken(token.AccessToken)
	return token.AccessToken, nil
}

func WithHeader(key, val string) Option {
	return func(pc *PortClient) {
		pc.Client.SetHeader(key, val)
	}
}

func WithClientID(clientID string) Option {
	return func(pc *PortClient) {
		pc.ClientID = clientID
	}
}

func WithClientSecret(clientSecret string) Option {
	return func(pc *PortClient) {
		pc.ClientSecret = clientSecret
	}
}

func WithDeleteDependents(deleteDependents bool) Option {
	return func(pc *PortClient) {
		pc.DeleteDependents = deleteDependents
	}
}

func WithCreateMissingRelatedEntities(createMissingRelatedEntities bool) Option {
	return func(pc *PortClient) {
		pc.CreateMissingRelatedEntities = createMissingRelatedEntities
	}
}

// getToken resolves the installation's access token through a process-wide
// ReuseTokenSource, so concurrent API calls share one refresh.
func getToken(clientID, clientSecret, baseURL string) (*oauth2.Token, error) {
	tokenSourceMu.RLock()
	if cachedTokenSource != nil {
		tokenSourceMu.RUnlock()
		return cachedTokenSource.Token()
	}
	tokenSourceMu.RUnlock()

	tokenSourceMu.Lock()
	defer tokenSourceMu.Unlock()
	if cachedTokenSource == nil {
		raw := newTokenSource(clientID, clientSecret, baseURL)
		cachedTokenSource = oauth2.ReuseTokenSource(nil, raw)
	}
	return cachedTokenSource.Token()
}

// ResetTokenSource drops the cached token source. Tests use it to point the
// client at a fresh mock server.
func ResetTokenSource() {
	tokenSourceMu.Lock()
	defer tokenSourceMu.Unlock()
	cachedTokenSource = nil
}
