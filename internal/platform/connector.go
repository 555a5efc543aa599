// Package platform holds one Connector per short-form video destination.
//
// Every connector exposes the same capability set so dispatch can fan out
// without knowing which platform it talks to. YouTube and TikTok share the
// OAuth token lifecycle in oauthConnector and differ only in their endpoints
// and upload protocol. Instagram and Facebook are permanent stubs until
// platform credentials are provisioned.
package platform

import (
	"context"
	"net/http"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/storage"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// ExpiryBuffer is how close to expiry a stored access token may get before
// GetAccessToken refreshes it
const ExpiryBuffer = 5 * time.Minute

// Connector owns OAuth credentials and the upload call for one platform
type Connector interface {
	Platform() models.Platform
	GetAuthURL(userID string) (string, error)
	// ParseState verifies the OAuth state parameter and returns the user id it was issued to
	ParseState(state string) (string, error)
	ExchangeCodeForToken(ctx context.Context, code, userID string) error
	RefreshAccessToken(ctx context.Context, userID string) (string, error)
	GetAccessToken(ctx context.Context, userID string) (string, error)
	// UploadVideo never returns an error; failures are reported in the result
	UploadVideo(ctx context.Context, userID, fileRef string, payload models.PlatformPayload) models.UploadResult
	IsConnected(ctx context.Context, userID string) (bool, error)
	Disconnect(ctx context.Context, userID string) error
}

// Deps are the collaborators shared by every connector
type Deps struct {
	Store      database.ConnectionStore
	Files      storage.FileStore
	HTTPClient *http.Client
	Logger     *logging.Logger
	Now        func() time.Time

	// StateSecret signs OAuth state. Empty means a random per-process key.
	StateSecret []byte
}

func (d Deps) withDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Logger = logging.OrNop(d.Logger)
	return d
}
