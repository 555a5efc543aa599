package platform

import (
	"context"

	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// unavailableConnector stands in for platforms whose API access is not provisioned.
// Connection bookkeeping works against the store; everything that would call
// the platform fails with ErrNotImplemented.
type unavailableConnector struct {
	platform models.Platform
	deps     Deps
}

// NewInstagramConnector creates the Instagram Reels placeholder connector
func NewInstagramConnector(deps Deps) Connector {
	return &unavailableConnector{platform: models.PlatformInstagramReels, deps: deps.withDefaults()}
}

// NewFacebookConnector creates the Facebook Reels placeholder connector
func NewFacebookConnector(deps Deps) Connector {
	return &unavailableConnector{platform: models.PlatformFacebookReels, deps: deps.withDefaults()}
}

func (c *unavailableConnector) Platform() models.Platform {
	return c.platform
}

func (c *unavailableConnector) GetAuthURL(string) (string, error) {
	return "", models.NotImplementedError(c.platform)
}

func (c *unavailableConnector) ParseState(string) (string, error) {
	return "", models.NotImplementedError(c.platform)
}

func (c *unavailableConnector) ExchangeCodeForToken(context.Context, string, string) error {
	return models.NotImplementedError(c.platform)
}

func (c *unavailableConnector) RefreshAccessToken(context.Context, string) (string, error) {
	return "", models.NotImplementedError(c.platform)
}

func (c *unavailableConnector) GetAccessToken(ctx context.Context, userID string) (string, error) {
	conn, err := c.deps.Store.GetActiveConnection(ctx, userID, c.platform)
	if err != nil {
		return "", models.NotConnectedError(c.platform)
	}
	return conn.AccessToken, nil
}

func (c *unavailableConnector) UploadVideo(context.Context, string, string, models.PlatformPayload) models.UploadResult {
	return models.FailedResult(models.NotImplementedError(c.platform))
}

func (c *unavailableConnector) IsConnected(ctx context.Context, userID string) (bool, error) {
	return isConnected(ctx, c.deps.Store, userID, c.platform)
}

func (c *unavailableConnector) Disconnect(ctx context.Context, userID string) error {
	return c.deps.Store.DeactivateConnection(ctx, userID, c.platform)
}
