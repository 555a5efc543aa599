package upload

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// sniffLen is how much of the file is read to detect its content type
const sniffLen = 3072

// Requirements describes what a short-form video should look like.
// Only format and size are enforced at intake.
type Requirements struct {
	MaxDurationSeconds    int        `json:"max_duration_seconds"`
	MinDurationSeconds    int        `json:"min_duration_seconds"`
	AspectRatio           string     `json:"aspect_ratio"`
	MaxFileSize           int64      `json:"max_file_size"`
	MinFileSize           int64      `json:"min_file_size"`
	AllowedFormats        []string   `json:"allowed_formats"`
	RecommendedResolution Resolution `json:"recommended_resolution"`
}

// Resolution is a frame size in pixels
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RequirementsFor builds the published requirements from the intake limits
func RequirementsFor(limits config.UploadConfig) Requirements {
	return Requirements{
		MaxDurationSeconds:    60,
		MinDurationSeconds:    3,
		AspectRatio:           "9:16",
		MaxFileSize:           limits.MaxFileSize,
		MinFileSize:           limits.MinFileSize,
		AllowedFormats:        append([]string(nil), limits.AllowedExtensions...),
		RecommendedResolution: Resolution{Width: 1080, Height: 1920},
	}
}

// validateFile checks name, size and content of an incoming video.
// The returned reader replays the bytes consumed while sniffing.
func validateFile(limits config.UploadConfig, file io.Reader, fileName string, size int64) (io.Reader, error) {
	if file == nil || fileName == "" {
		return nil, models.NewValidationError("Video file is required")
	}

	var problems []string

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtension(limits.AllowedExtensions, ext) {
		problems = append(problems, fmt.Sprintf("Unsupported video format: %s. Allowed formats: %s",
			ext, strings.Join(limits.AllowedExtensions, ", ")))
	}
	if size > limits.MaxFileSize {
		problems = append(problems, fmt.Sprintf("Video file size (%s) exceeds maximum allowed size (%s)",
			formatFileSize(size), formatFileSize(limits.MaxFileSize)))
	}
	if size < limits.MinFileSize {
		problems = append(problems, "Video file is too small to be valid")
	}
	if len(problems) > 0 {
		return nil, models.NewValidationError(problems...)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read video file: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "video/") {
		return nil, models.NewValidationError(fmt.Sprintf("File content is not a video (detected %s)", detected.String()))
	}

	return io.MultiReader(bytes.NewReader(head), file), nil
}

func allowedExtension(allowed []string, ext string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

func formatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
