package models

import (
	"database/sql/driver"
	"encoding/json"
)

// VideoDetails is the platform-neutral description supplied at upload time
type VideoDetails struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	Category    string   `json:"category,omitempty"`
	Privacy     string   `json:"privacy,omitempty"`
}

// PlatformPayload is the metadata adapted for a single platform.
// Exactly one of the platform-specific fields is set, matching Platform.
type PlatformPayload struct {
	Platform  Platform           `json:"platform"`
	YouTube   *YouTubeMetadata   `json:"youtube,omitempty"`
	TikTok    *TikTokMetadata    `json:"tiktok,omitempty"`
	Instagram *InstagramMetadata `json:"instagram,omitempty"`
	Facebook  *FacebookMetadata  `json:"facebook,omitempty"`
}

// YouTubeMetadata mirrors the videos.insert snippet/status resource
type YouTubeMetadata struct {
	Snippet YouTubeSnippet `json:"snippet"`
	Status  YouTubeStatus  `json:"status"`
}

// YouTubeSnippet holds the descriptive part of a YouTube upload
type YouTubeSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"categoryId"`
}

// YouTubeStatus holds the visibility part of a YouTube upload
type YouTubeStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// TikTokMetadata mirrors the TikTok post_info object
type TikTokMetadata struct {
	Title          string `json:"title"`
	Caption        string `json:"caption"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableComment bool   `json:"disable_comment"`
	DisableDuet    bool   `json:"disable_duet"`
	DisableStitch  bool   `json:"disable_stitch"`
}

// InstagramMetadata mirrors the Reels container parameters
type InstagramMetadata struct {
	Caption         string `json:"caption"`
	ShareToFeed     bool   `json:"share_to_feed"`
	ThumbnailOffset int    `json:"thumbnail_offset"`
	AudioName       string `json:"audio_name"`
}

// FacebookMetadata mirrors the Page video publish parameters
type FacebookMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
	Published   bool   `json:"published"`
}

// PlatformMetadata is the ordered list of per-platform payloads stored on a video
type PlatformMetadata []PlatformPayload

// For returns the payload generated for p, if any
func (m PlatformMetadata) For(p Platform) (PlatformPayload, bool) {
	for _, payload := range m {
		if payload.Platform == p {
			return payload, true
		}
	}
	return PlatformPayload{}, false
}

// Value implements driver.Valuer for database storage
func (m PlatformMetadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *PlatformMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = PlatformMetadata{}
		return nil
	}

	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}

	return json.Unmarshal(bytes, m)
}
