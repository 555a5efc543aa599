package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Production endpoints
const (
	youTubeAuthURL    = "https://accounts.google.com/o/oauth2/v2/auth"
	youTubeTokenBase  = "https://oauth2.googleapis.com"
	youTubeAPIBase    = "https://www.googleapis.com"
	youTubeShortsBase = "https://youtube.com/shorts/"
)

var youTubeScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
	"https://www.googleapis.com/auth/youtube.force-ssl",
}

// NewYouTubeConnector creates the YouTube Shorts connector.
// AuthBaseURL overrides the token host, APIBaseURL the upload host.
func NewYouTubeConnector(app config.OAuthAppConfig, deps Deps) Connector {
	deps = deps.withDefaults()

	authorizeURL := youTubeAuthURL
	tokenBase := youTubeTokenBase
	if app.AuthBaseURL != "" {
		authorizeURL = strings.TrimSuffix(app.AuthBaseURL, "/") + "/o/oauth2/v2/auth"
		tokenBase = strings.TrimSuffix(app.AuthBaseURL, "/")
	}

	apiBase := youTubeAPIBase
	if app.APIBaseURL != "" {
		apiBase = strings.TrimSuffix(app.APIBaseURL, "/")
	}

	spec := oauthSpec{
		authorizeURL:   authorizeURL,
		tokenURL:       tokenBase + "/token",
		clientIDParam:  "client_id",
		scopes:         youTubeScopes,
		scopeSeparator: " ",
		extraParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
	}

	up := &youTubeUploader{
		client:    deps.HTTPClient,
		uploadURL: apiBase + "/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status",
	}

	return newOAuthConnector(models.PlatformYouTubeShorts, app, spec, up, deps)
}

// youTubeUploader speaks the resumable upload protocol of videos.insert
type youTubeUploader struct {
	client    *http.Client
	uploadURL string
}

func (u *youTubeUploader) publish(ctx context.Context, token string, video io.Reader, size int64, payload models.PlatformPayload) (models.UploadResult, error) {
	if payload.YouTube == nil {
		return models.UploadResult{}, errors.New("missing YouTube metadata")
	}

	sessionURL, err := u.startSession(ctx, token, size, payload.YouTube)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("upload initialization failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, video)
	if err != nil {
		return models.UploadResult{}, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/*")

	var created struct {
		ID string `json:"id"`
	}
	if err := doJSON(u.client, req, &created); err != nil {
		return models.UploadResult{}, fmt.Errorf("video upload failed: %w", err)
	}
	if created.ID == "" {
		return models.UploadResult{}, errors.New("video upload failed: response did not include a video id")
	}

	return models.UploadResult{
		Success:         true,
		PlatformVideoID: created.ID,
		URL:             youTubeShortsBase + created.ID,
	}, nil
}

// startSession posts the metadata and returns the resumable session URL
func (u *youTubeUploader) startSession(ctx context.Context, token string, size int64, meta *models.YouTubeMetadata) (string, error) {
	body, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Type", "video/*")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("no upload session location returned")
	}
	return location, nil
}
