// Package metadata adapts one platform-neutral video description into the
// payload each supported platform expects. Everything here is pure.
package metadata

import (
	"strings"

	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Platform limits, counted in characters
const (
	YouTubeTitleMax     = 100
	TikTokTitleMax      = 150
	FacebookTitleMax    = 255
	TikTokCaptionMax    = 2200
	InstagramCaptionMax = 2200

	ellipsis = "..."
)

const defaultYouTubeCategory = "22" // People & Blogs

var youTubeCategories = map[string]string{
	"entertainment": "24",
	"education":     "27",
	"sports":        "17",
	"gaming":        "20",
	"music":         "10",
	"comedy":        "23",
	"default":       defaultYouTubeCategory,
}

var (
	youTubePrivacy = map[string]string{
		"public":  "public",
		"private": "private",
		"friends": "unlisted",
	}
	tikTokPrivacy = map[string]string{
		"public":  "PUBLIC_TO_EVERYONE",
		"private": "SELF_ONLY",
		"friends": "MUTUAL_FOLLOW_FRIENDS",
	}
	facebookPrivacy = map[string]string{
		"public":  "EVERYONE",
		"private": "SELF",
		"friends": "ALL_FRIENDS",
	}
)

// MapMetadata returns one payload per supported platform, in
// models.SupportedPlatforms order, regardless of which platforms are targeted.
func MapMetadata(details models.VideoDetails) models.PlatformMetadata {
	return models.PlatformMetadata{
		{Platform: models.PlatformYouTubeShorts, YouTube: youTube(details)},
		{Platform: models.PlatformTikTok, TikTok: tikTok(details)},
		{Platform: models.PlatformInstagramReels, Instagram: instagram(details)},
		{Platform: models.PlatformFacebookReels, Facebook: facebook(details)},
	}
}

func youTube(d models.VideoDetails) *models.YouTubeMetadata {
	description := d.Description
	if len(d.Tags) > 0 {
		description += "\n\nTags: " + strings.Join(d.Tags, ", ")
	}

	tags := make([]string, len(d.Tags))
	copy(tags, d.Tags)

	return &models.YouTubeMetadata{
		Snippet: models.YouTubeSnippet{
			Title:       Truncate(d.Title, YouTubeTitleMax),
			Description: description,
			Tags:        tags,
			CategoryID:  YouTubeCategory(d.Category),
		},
		Status: models.YouTubeStatus{
			PrivacyStatus:           mapPrivacy(youTubePrivacy, d.Privacy),
			SelfDeclaredMadeForKids: false,
		},
	}
}

func tikTok(d models.VideoDetails) *models.TikTokMetadata {
	caption := d.Title + "\n" + d.Description
	if len(d.Hashtags) > 0 {
		caption += "\n" + FormatHashtags(d.Hashtags)
	}

	return &models.TikTokMetadata{
		Title:        Truncate(d.Title, TikTokTitleMax),
		Caption:      Truncate(caption, TikTokCaptionMax),
		PrivacyLevel: mapPrivacy(tikTokPrivacy, d.Privacy),
	}
}

func instagram(d models.VideoDetails) *models.InstagramMetadata {
	caption := d.Title + "\n\n" + d.Description
	if len(d.Hashtags) > 0 {
		caption += "\n\n" + FormatHashtags(d.Hashtags)
	}

	return &models.InstagramMetadata{
		Caption:         Truncate(caption, InstagramCaptionMax),
		ShareToFeed:     true,
		ThumbnailOffset: 0,
		AudioName:       d.Title,
	}
}

func facebook(d models.VideoDetails) *models.FacebookMetadata {
	description := d.Description
	if len(d.Hashtags) > 0 {
		description += "\n" + FormatHashtags(d.Hashtags)
	}

	return &models.FacebookMetadata{
		Title:       Truncate(d.Title, FacebookTitleMax),
		Description: description,
		Privacy:     mapPrivacy(facebookPrivacy, d.Privacy),
		Published:   true,
	}
}

// Truncate shortens s to max characters, ending in "..." when cut
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

// FormatHashtags prefixes each tag with '#' when missing and joins them with spaces
func FormatHashtags(tags []string) string {
	formatted := make([]string, len(tags))
	for i, tag := range tags {
		if strings.HasPrefix(tag, "#") {
			formatted[i] = tag
		} else {
			formatted[i] = "#" + tag
		}
	}
	return strings.Join(formatted, " ")
}

// YouTubeCategory maps a category name to a YouTube category id
func YouTubeCategory(category string) string {
	if id, ok := youTubeCategories[strings.ToLower(category)]; ok {
		return id
	}
	return defaultYouTubeCategory
}

// mapPrivacy falls back to the platform's public value
func mapPrivacy(table map[string]string, privacy string) string {
	if v, ok := table[strings.ToLower(privacy)]; ok {
		return v
	}
	return table["public"]
}
