package logging

import (
	"time"

	"github.com/rs/zerolog"
)

// outcome picks info for success and lvl (with err attached) otherwise
func (l *Logger) outcome(err error, lvl zerolog.Level) *zerolog.Event {
	if err != nil {
		return l.logger.WithLevel(lvl).Err(err)
	}
	return l.logger.Info()
}

// LogHTTPRequest records one served request
func (l *Logger) LogHTTPRequest(method, path, clientIP string, statusCode int, duration time.Duration) {
	l.logger.Info().
		Str("method", method).
		Str("path", path).
		Str("client_ip", clientIP).
		Int("status_code", statusCode).
		Dur("duration_ms", duration).
		Msg("HTTP request")
}

// LogDispatchEvent records a step in a dispatch job's lifecycle
func (l *Logger) LogDispatchEvent(videoID, event, status string, details map[string]interface{}) {
	l.logger.Info().
		Str("video_id", videoID).
		Str("event", event).
		Str("status", status).
		Fields(details).
		Msg("Dispatch event")
}

// LogPlatformResult records one platform delivery. Failures log at warn.
func (l *Logger) LogPlatformResult(videoID, platform string, success bool, detail string, duration time.Duration) {
	evt := l.logger.Info()
	if !success {
		evt = l.logger.Warn()
	}

	evt.
		Str("video_id", videoID).
		Str("platform", platform).
		Bool("success", success).
		Str("detail", detail).
		Dur("duration_ms", duration).
		Msg("Platform upload")
}

func (l *Logger) LogStorageOperation(operation, bucket, key string, size int64, duration time.Duration, err error) {
	l.outcome(err, zerolog.ErrorLevel).
		Str("operation", operation).
		Str("bucket", bucket).
		Str("key", key).
		Int64("size_bytes", size).
		Dur("duration_ms", duration).
		Msg("Storage operation")
}

// LogDatabaseOperation records a failed or slow statement
func (l *Logger) LogDatabaseOperation(operation string, duration time.Duration, err error) {
	l.outcome(err, zerolog.ErrorLevel).
		Str("operation", operation).
		Dur("duration_ms", duration).
		Msg("Database operation")
}
