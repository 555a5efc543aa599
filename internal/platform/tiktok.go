package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Production endpoints
const (
	tikTokAuthURL   = "https://www.tiktok.com/v2/auth/authorize"
	tikTokAPIBase   = "https://open.tiktokapis.com"
	tikTokVideoBase = "https://tiktok.com/@user/video/"
)

var tikTokScopes = []string{"user.info.basic", "video.upload", "video.publish"}

// NewTikTokConnector creates the TikTok connector.
// TikTok names the client id "client_key" and joins scopes with commas.
func NewTikTokConnector(app config.OAuthAppConfig, deps Deps) Connector {
	deps = deps.withDefaults()

	authorizeURL := tikTokAuthURL
	if app.AuthBaseURL != "" {
		authorizeURL = strings.TrimSuffix(app.AuthBaseURL, "/") + "/v2/auth/authorize"
	}

	apiBase := tikTokAPIBase
	if app.APIBaseURL != "" {
		apiBase = strings.TrimSuffix(app.APIBaseURL, "/")
	}

	spec := oauthSpec{
		authorizeURL:   authorizeURL,
		tokenURL:       apiBase + "/v2/oauth/token/",
		clientIDParam:  "client_key",
		scopes:         tikTokScopes,
		scopeSeparator: ",",
	}

	up := &tikTokUploader{
		client:    deps.HTTPClient,
		initURL:   apiBase + "/v2/post/publish/video/init/",
		statusURL: apiBase + "/v2/post/publish/status/fetch/",
	}

	return newOAuthConnector(models.PlatformTikTok, app, spec, up, deps)
}

// tikTokUploader runs the init, transfer and status steps of the Content Posting API
type tikTokUploader struct {
	client    *http.Client
	initURL   string
	statusURL string
}

type tikTokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// failed reports whether the envelope carries a real error
func (e tikTokError) failed() bool {
	return e.Code != "" && e.Code != "ok"
}

func (e tikTokError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

type tikTokInitRequest struct {
	PostInfo   tikTokPostInfo   `json:"post_info"`
	SourceInfo tikTokSourceInfo `json:"source_info"`
}

type tikTokPostInfo struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableComment bool   `json:"disable_comment"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableStitch  bool   `json:"disable_stitch"`
}

type tikTokSourceInfo struct {
	Source          string `json:"source"`
	VideoSize       int64  `json:"video_size"`
	ChunkSize       int64  `json:"chunk_size"`
	TotalChunkCount int    `json:"total_chunk_count"`
}

type tikTokInitResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
		UploadURL string `json:"upload_url"`
	} `json:"data"`
	Error tikTokError `json:"error"`
}

type tikTokStatusResponse struct {
	Data struct {
		Status   string `json:"status"`
		ShareURL string `json:"share_url"`
	} `json:"data"`
	Error tikTokError `json:"error"`
}

func (u *tikTokUploader) publish(ctx context.Context, token string, video io.Reader, size int64, payload models.PlatformPayload) (models.UploadResult, error) {
	if payload.TikTok == nil {
		return models.UploadResult{}, errors.New("missing TikTok metadata")
	}
	meta := payload.TikTok

	initReq := tikTokInitRequest{
		PostInfo: tikTokPostInfo{
			Title:          meta.Title,
			Description:    meta.Caption,
			PrivacyLevel:   meta.PrivacyLevel,
			DisableComment: meta.DisableComment,
			DisableDuet:    meta.DisableDuet,
			DisableStitch:  meta.DisableStitch,
		},
		SourceInfo: tikTokSourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       size,
			ChunkSize:       size,
			TotalChunkCount: 1,
		},
	}

	var initResp tikTokInitResponse
	if err := u.postJSON(ctx, u.initURL, token, initReq, &initResp); err != nil {
		return models.UploadResult{}, fmt.Errorf("upload initialization failed: %w", err)
	}
	if initResp.Error.failed() {
		return models.UploadResult{}, fmt.Errorf("upload initialization failed: %w", initResp.Error)
	}
	publishID := initResp.Data.PublishID
	if initResp.Data.UploadURL == "" || publishID == "" {
		return models.UploadResult{}, errors.New("upload initialization failed: missing upload url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, initResp.Data.UploadURL, video)
	if err != nil {
		return models.UploadResult{}, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", size-1, size))
	if err := doJSON(u.client, req, nil); err != nil {
		return models.UploadResult{}, fmt.Errorf("video upload failed: %w", err)
	}

	result := models.UploadResult{
		Success:         true,
		PlatformVideoID: publishID,
		URL:             tikTokVideoBase + publishID,
	}

	// The transfer succeeded; a status lookup failure only costs the share url.
	var status tikTokStatusResponse
	if err := u.postJSON(ctx, u.statusURL, token, map[string]string{"publish_id": publishID}, &status); err == nil {
		if status.Data.ShareURL != "" {
			result.URL = status.Data.ShareURL
		}
	}

	return result, nil
}

func (u *tikTokUploader) postJSON(ctx context.Context, url, token string, body, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	return doJSON(u.client, req, dest)
}
