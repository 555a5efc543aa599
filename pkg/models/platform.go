package models

import (
	"strings"
)

// Platform identifies a short-form video destination
type Platform string

// Supported platforms
const (
	PlatformYouTubeShorts  Platform = "youtube_shorts"
	PlatformTikTok         Platform = "tiktok"
	PlatformInstagramReels Platform = "instagram_reels"
	PlatformFacebookReels  Platform = "facebook_reels"
)

// SupportedPlatforms lists every platform in metadata order
var SupportedPlatforms = []Platform{
	PlatformYouTubeShorts,
	PlatformTikTok,
	PlatformInstagramReels,
	PlatformFacebookReels,
}

// IsValid reports whether p is one of the supported platforms
func (p Platform) IsValid() bool {
	for _, s := range SupportedPlatforms {
		if p == s {
			return true
		}
	}
	return false
}

// DisplayName returns the human-readable platform name
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTubeShorts:
		return "YouTube"
	case PlatformTikTok:
		return "TikTok"
	case PlatformInstagramReels:
		return "Instagram"
	case PlatformFacebookReels:
		return "Facebook"
	default:
		return string(p)
	}
}

// ParsePlatforms converts raw names into an ordered, de-duplicated platform set.
// It fails with a ValidationError naming every unrecognized value.
func ParsePlatforms(raw []string) ([]Platform, error) {
	if len(raw) == 0 {
		return nil, NewValidationError("at least one target platform is required")
	}

	var (
		platforms []Platform
		invalid   []string
		seen      = make(map[Platform]bool, len(raw))
	)

	for _, r := range raw {
		p := Platform(strings.TrimSpace(r))
		if !p.IsValid() {
			invalid = append(invalid, r)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		platforms = append(platforms, p)
	}

	if len(invalid) > 0 {
		return nil, NewValidationError("Invalid platforms: " + strings.Join(invalid, ", "))
	}

	return platforms, nil
}
