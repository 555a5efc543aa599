package main

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/middleware"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/upload"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// multipartOverhead is the slack allowed above the file size for form fields and boundaries
const multipartOverhead = 1 << 20

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError maps the error taxonomy onto HTTP statuses
func (api *API) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrQuotaExceeded):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNotImplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, models.ErrRefreshFailed):
		status = http.StatusBadGateway
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		api.logger.WithField("path", c.FullPath()).ErrorWithErr("Request failed", err)
		message = "Internal server error"
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}

func userID(c *gin.Context) string {
	id, _ := middleware.GetUserID(c)
	return id
}

// formList reads a list field sent either as a JSON array string or as repeated values
func formList(c *gin.Context, field string) ([]string, error) {
	values := c.PostFormArray(field)
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var list []string
		if err := json.Unmarshal([]byte(values[0]), &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	return values, nil
}

// Upload video endpoint
func (api *API) uploadVideo(c *gin.Context) {
	if api.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxBodySize+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		api.respondError(c, models.NewValidationError("Video file exceeds maximum allowed size"))
		return
	}

	platforms, err := formList(c, "targetPlatforms")
	if err != nil {
		api.respondError(c, models.NewValidationError("Invalid target platforms format"))
		return
	}
	tags, err := formList(c, "tags")
	if err != nil {
		api.respondError(c, models.NewValidationError("Invalid tags format"))
		return
	}
	hashtags, err := formList(c, "hashtags")
	if err != nil {
		api.respondError(c, models.NewValidationError("Invalid hashtags format"))
		return
	}

	req := &upload.Request{
		UserID:          userID(c),
		Title:           c.PostForm("title"),
		Description:     c.PostForm("description"),
		TargetPlatforms: platforms,
		Tags:            tags,
		Hashtags:        hashtags,
		Category:        c.PostForm("category"),
		Privacy:         c.PostForm("privacy"),
	}

	if fileHeader != nil {
		var file multipart.File
		file, err = fileHeader.Open()
		if err != nil {
			api.respondError(c, err)
			return
		}
		defer file.Close()

		req.File = file
		req.FileName = fileHeader.Filename
		req.FileSize = fileHeader.Size
	}

	video, err := api.uploads.UploadVideo(c.Request.Context(), req)
	if errors.Is(err, models.ErrEnqueueFailed) && video != nil {
		api.logger.WithVideoID(video.ID).ErrorWithErr("Upload stored but not queued", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Video was stored but could not be queued; it will be dispatched later",
			"data": gin.H{
				"video_id": video.ID,
				"status":   video.Status,
			},
		})
		return
	}
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"video_id": video.ID,
		"status":   video.Status,
		"message":  "Video uploaded successfully and queued for processing",
	})
}

// Get video endpoint
func (api *API) getVideo(c *gin.Context) {
	video, err := api.uploads.GetVideo(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, video)
}

// List videos endpoint
func (api *API) listVideos(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.respondError(c, models.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	videos, err := api.uploads.ListVideos(c.Request.Context(), userID(c), limit)
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, videos)
}

// Delete video endpoint
func (api *API) deleteVideo(c *gin.Context) {
	videoID := c.Param("id")

	if err := api.uploads.DeleteVideo(c.Request.Context(), userID(c), videoID); err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "Video deleted successfully", "video_id": videoID})
}

func (api *API) getQuota(c *gin.Context) {
	info, err := api.uploads.QuotaInfo(c.Request.Context(), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, info)
}

func (api *API) getRequirements(c *gin.Context) {
	respond(c, http.StatusOK, api.uploads.Requirements())
}
