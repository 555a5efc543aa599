package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of a failed response is quoted in errors
const maxErrorBody = 512

// uploader performs a platform's media upload with a valid access token
type uploader interface {
	publish(ctx context.Context, token string, video io.Reader, size int64, payload models.PlatformPayload) (models.UploadResult, error)
}

// oauthSpec describes the authorization-code flow of one platform
type oauthSpec struct {
	authorizeURL   string
	tokenURL       string
	clientIDParam  string
	scopes         []string
	scopeSeparator string
	extraParams    map[string]string
}

// oauthConnector implements the token lifecycle shared by OAuth platforms
type oauthConnector struct {
	platform models.Platform
	app      config.OAuthAppConfig
	spec     oauthSpec
	uploader uploader
	limiter  *rate.Limiter
	state    *stateSigner
	deps     Deps
}

func newOAuthConnector(p models.Platform, app config.OAuthAppConfig, spec oauthSpec, up uploader, deps Deps) *oauthConnector {
	limit := rate.Inf
	if app.RequestsPerSecond > 0 {
		limit = rate.Limit(app.RequestsPerSecond)
	}

	return &oauthConnector{
		platform: p,
		app:      app,
		spec:     spec,
		uploader: up,
		limiter:  rate.NewLimiter(limit, 1),
		state:    newStateSigner(deps.StateSecret, deps.Now),
		deps:     deps,
	}
}

// tokenResponse is the common shape of OAuth token endpoint replies
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *oauthConnector) Platform() models.Platform {
	return c.platform
}

func (c *oauthConnector) GetAuthURL(userID string) (string, error) {
	state, err := c.state.sign(userID, c.platform)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set(c.spec.clientIDParam, c.app.ClientID)
	params.Set("redirect_uri", c.app.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(c.spec.scopes, c.spec.scopeSeparator))
	params.Set("state", state)
	for k, v := range c.spec.extraParams {
		params.Set(k, v)
	}

	return c.spec.authorizeURL + "?" + params.Encode(), nil
}

func (c *oauthConnector) ParseState(state string) (string, error) {
	userID, err := c.state.verify(state, c.platform)
	if err != nil || userID == "" {
		c.deps.Logger.WithPlatform(string(c.platform)).Warn("Rejected OAuth callback with invalid state")
		return "", models.NewValidationError("invalid OAuth state")
	}
	return userID, nil
}

func (c *oauthConnector) ExchangeCodeForToken(ctx context.Context, code, userID string) error {
	if code == "" {
		return models.NewValidationError("authorization code is required")
	}

	form := url.Values{}
	form.Set(c.spec.clientIDParam, c.app.ClientID)
	form.Set("client_secret", c.app.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.app.RedirectURI)

	tokens, err := c.requestToken(ctx, form)
	if err != nil {
		return fmt.Errorf("%s token exchange failed: %w", c.platform.DisplayName(), err)
	}

	conn := &models.PlatformConnection{
		UserID:         userID,
		Platform:       c.platform,
		AccessToken:    tokens.AccessToken,
		RefreshToken:   tokens.RefreshToken,
		TokenExpiresAt: tokens.ExpiresAt,
	}
	if err := c.deps.Store.UpsertConnection(ctx, conn); err != nil {
		return fmt.Errorf("failed to store %s connection: %w", c.platform.DisplayName(), err)
	}

	c.deps.Logger.WithUserID(userID).WithPlatform(string(c.platform)).Info("Platform connected")
	return nil
}

func (c *oauthConnector) RefreshAccessToken(ctx context.Context, userID string) (string, error) {
	conn, err := c.deps.Store.GetActiveConnection(ctx, userID, c.platform)
	if err != nil || conn.RefreshToken == "" {
		metrics.RecordTokenRefresh(string(c.platform), false)
		return "", fmt.Errorf("%w: no %s connection found or refresh token missing",
			models.ErrRefreshFailed, c.platform.DisplayName())
	}

	form := url.Values{}
	form.Set(c.spec.clientIDParam, c.app.ClientID)
	form.Set("client_secret", c.app.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)

	tokens, err := c.requestToken(ctx, form)
	if err != nil {
		metrics.RecordTokenRefresh(string(c.platform), false)
		return "", fmt.Errorf("%w: %w", models.ErrRefreshFailed, err)
	}

	if err := c.deps.Store.UpdateTokens(ctx, userID, c.platform, *tokens); err != nil {
		metrics.RecordTokenRefresh(string(c.platform), false)
		return "", fmt.Errorf("%w: failed to store refreshed token: %w", models.ErrRefreshFailed, err)
	}

	metrics.RecordTokenRefresh(string(c.platform), true)
	return tokens.AccessToken, nil
}

func (c *oauthConnector) GetAccessToken(ctx context.Context, userID string) (string, error) {
	conn, err := c.deps.Store.GetActiveConnection(ctx, userID, c.platform)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.NotConnectedError(c.platform)
	}
	if err != nil {
		return "", err
	}

	if conn.ExpiresWithin(c.deps.Now(), ExpiryBuffer) {
		return c.RefreshAccessToken(ctx, userID)
	}

	return conn.AccessToken, nil
}

func (c *oauthConnector) UploadVideo(ctx context.Context, userID, fileRef string, payload models.PlatformPayload) models.UploadResult {
	logger := c.deps.Logger.WithUserID(userID).WithPlatform(string(c.platform))

	result, err := c.upload(ctx, userID, fileRef, payload)
	if err != nil {
		logger.WarnWithErr("Platform upload failed", err)
		return models.FailedResult(err)
	}

	if err := c.deps.Store.TouchLastUsed(ctx, userID, c.platform, c.deps.Now()); err != nil {
		logger.WarnWithErr("Failed to record connection use", err)
	}

	return result
}

func (c *oauthConnector) upload(ctx context.Context, userID, fileRef string, payload models.PlatformPayload) (models.UploadResult, error) {
	if payload.Platform != c.platform {
		return models.UploadResult{}, fmt.Errorf("metadata for %s passed to %s connector", payload.Platform, c.platform)
	}

	token, err := c.GetAccessToken(ctx, userID)
	if err != nil {
		return models.UploadResult{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.UploadResult{}, fmt.Errorf("rate limiter: %w", err)
	}

	video, size, err := c.deps.Files.Open(ctx, fileRef)
	if err != nil {
		return models.UploadResult{}, err
	}
	defer video.Close()

	return c.uploader.publish(ctx, token, video, size, payload)
}

func (c *oauthConnector) IsConnected(ctx context.Context, userID string) (bool, error) {
	return isConnected(ctx, c.deps.Store, userID, c.platform)
}

func (c *oauthConnector) Disconnect(ctx context.Context, userID string) error {
	return c.deps.Store.DeactivateConnection(ctx, userID, c.platform)
}

// requestToken posts a token grant and converts the reply into a TokenSet
func (c *oauthConnector) requestToken(ctx context.Context, form url.Values) (*models.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spec.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body tokenResponse
	if err := doJSON(c.deps.HTTPClient, req, &body); err != nil {
		return nil, err
	}

	if body.Error != "" {
		if body.ErrorDescription != "" {
			return nil, errors.New(body.ErrorDescription)
		}
		return nil, errors.New(body.Error)
	}
	if body.AccessToken == "" {
		return nil, errors.New("token response did not include an access token")
	}

	tokens := &models.TokenSet{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if body.ExpiresIn > 0 {
		expiresAt := c.deps.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
		tokens.ExpiresAt = &expiresAt
	}

	return tokens, nil
}

func isConnected(ctx context.Context, store database.ConnectionStore, userID string, p models.Platform) (bool, error) {
	_, err := store.GetActiveConnection(ctx, userID, p)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// doJSON sends req and decodes a 2xx JSON reply into dest
func doJSON(client *http.Client, req *http.Request, dest interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// checkStatus turns a non-2xx response into an error quoting the body
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
