package aclsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the ACL service. It is safe for concurrent use.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSession returns a Session that authenticates every request with the
// given access token.
func (c *SDKClient) NewSession(accessToken string) *Session {
	return &Session{client: c, accessToken: accessToken}
}

// Session performs authenticated calls on behalf of one principal.
type Session struct {
	client      *SDKClient
	accessToken string
}
