/*
 * @Author: Marlon.M
 * @Email: maiguangyang@163.com
 * @Date: 2026-03-02
 *
 * Credential providers - 连接凭证获取
 *
 * 两种来源：部署侧的 HTTP 令牌端点（环境注入 URL），
 * 或自托管场景下用 API key/secret 本地签发 LiveKit join token。
 */
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/livekit/protocol/auth"
)

// defaultTokenTTL keeps minted credentials valid well past any
// reconnect backoff sequence
const defaultTokenTTL = 6 * time.Hour

// AccessTokenProvider mints LiveKit join tokens locally from an API
// key/secret pair
type AccessTokenProvider struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewAccessTokenProvider creates a local token minter
func NewAccessTokenProvider(apiKey, apiSecret string) *AccessTokenProvider {
	return &AccessTokenProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       defaultTokenTTL,
	}
}

// Credential mints a join token scoped to the channel's room
func (p *AccessTokenProvider) Credential(_ context.Context, channelID, identity string) (string, error) {
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     channelID,
	}

	at := auth.NewAccessToken(p.apiKey, p.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(identity).
		SetValidFor(p.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}
	return token, nil
}

// HTTPProvider fetches credentials from the deployment's token endpoint
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider creates a provider against the injected endpoint URL
func NewHTTPProvider(endpoint string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Credential requests a token for the channel. The endpoint returns
// the raw token in the response body.
func (p *HTTPProvider) Credential(ctx context.Context, channelID, identity string) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("token endpoint: %w", err)
	}
	q := u.Query()
	q.Set("channel", channelID)
	q.Set("identity", identity)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
