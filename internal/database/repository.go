package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Users

// CreateUser creates a new user record
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Tier == "" {
		user.Tier = models.TierBasic
	}
	if user.LastResetDate.IsZero() {
		user.LastResetDate = time.Now()
	}

	query := `
		INSERT INTO users (id, email, password_hash, phone, tier, is_email_verified, daily_upload_count, last_reset_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Phone, user.Tier,
		user.IsEmailVerified, user.DailyUploadCount, user.LastResetDate,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("user with email %s: %w", user.Email, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

const userColumns = `id, email, password_hash, phone, tier, is_email_verified,
		       daily_upload_count, last_reset_date, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Phone, &user.Tier,
		&user.IsEmailVerified, &user.DailyUploadCount, &user.LastResetDate,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser retrieves a user by ID
func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ResetDailyCount zeroes the daily counter and records the reset time
func (r *Repository) ResetDailyCount(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE users
		SET daily_upload_count = 0, last_reset_date = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to reset daily count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("user", id)
	}

	return nil
}

// IncrementUploadCount adds exactly one upload to the daily counter
func (r *Repository) IncrementUploadCount(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET daily_upload_count = daily_upload_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment upload count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("user", id)
	}

	return nil
}

// Videos

const videoColumns = `id, user_id, title, description, file_ref, status, target_platforms,
		       metadata, upload_results, enqueued_at, created_at, updated_at`

func platformNames(platforms []models.Platform) []string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return names
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var (
		video   models.Video
		targets []string
	)

	err := row.Scan(
		&video.ID, &video.UserID, &video.Title, &video.Description, &video.FileRef,
		&video.Status, &targets, &video.Metadata, &video.UploadResults,
		&video.EnqueuedAt, &video.CreatedAt, &video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	video.TargetPlatforms = make([]models.Platform, len(targets))
	for i, t := range targets {
		video.TargetPlatforms[i] = models.Platform(t)
	}

	return &video, nil
}

// CreateVideo creates a new video record
func (r *Repository) CreateVideo(ctx context.Context, video *models.Video) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if video.Status == "" {
		video.Status = models.VideoStatusPending
	}
	if video.UploadResults == nil {
		video.UploadResults = make(models.UploadResults)
	}

	query := `
		INSERT INTO videos (id, user_id, title, description, file_ref, status, target_platforms, metadata, upload_results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ID, video.UserID, video.Title, video.Description, video.FileRef,
		video.Status, platformNames(video.TargetPlatforms), video.Metadata, video.UploadResults,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetVideo retrieves a video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError("video", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

func (r *Repository) queryVideos(ctx context.Context, query string, args ...interface{}) ([]*models.Video, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}

	return videos, nil
}

// ListVideosByUser retrieves a user's videos, newest first
func (r *Repository) ListVideosByUser(ctx context.Context, userID string, limit int) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.queryVideos(ctx, query, userID, limit)
}

// ListStalePendingVideos retrieves never-enqueued pending videos created before the cutoff
func (r *Repository) ListStalePendingVideos(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Video, error) {
	query := `
		SELECT ` + videoColumns + `
		FROM videos
		WHERE status = $1 AND enqueued_at IS NULL AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	return r.queryVideos(ctx, query, models.VideoStatusPending, createdBefore, limit)
}

// MarkVideoEnqueued stamps the time a dispatch job for the video was published
func (r *Repository) MarkVideoEnqueued(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE videos SET enqueued_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark video enqueued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("video", id)
	}

	return nil
}

// UpdateVideoStatus sets the status of a video
func (r *Repository) UpdateVideoStatus(ctx context.Context, id string, status models.VideoStatus) error {
	query := `UPDATE videos SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("video", id)
	}

	return nil
}

// UpdateVideoResult sets status and upload results in one statement
func (r *Repository) UpdateVideoResult(ctx context.Context, id string, status models.VideoStatus, results models.UploadResults) error {
	query := `
		UPDATE videos
		SET status = $2, upload_results = $3, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, status, results)
	if err != nil {
		return fmt.Errorf("failed to update video result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("video", id)
	}

	return nil
}

// DeleteVideo removes a video record
func (r *Repository) DeleteVideo(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("video", id)
	}

	return nil
}

// Platform connections

// UpsertConnection creates or replaces the connection for (user, platform).
// An empty refresh token keeps the one already on file.
func (r *Repository) UpsertConnection(ctx context.Context, conn *models.PlatformConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.New().String()
	}
	conn.IsActive = true

	query := `
		INSERT INTO platform_connections (id, user_id, platform, access_token, refresh_token,
		                                  token_expires_at, platform_user_id, platform_username, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token      = EXCLUDED.access_token,
			refresh_token     = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), platform_connections.refresh_token),
			token_expires_at  = EXCLUDED.token_expires_at,
			platform_user_id  = EXCLUDED.platform_user_id,
			platform_username = EXCLUDED.platform_username,
			is_active         = TRUE,
			updated_at        = NOW()
		RETURNING id, refresh_token, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		conn.ID, conn.UserID, conn.Platform, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.PlatformUserID, conn.PlatformUsername,
	).Scan(&conn.ID, &conn.RefreshToken, &conn.CreatedAt, &conn.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	return nil
}

// GetActiveConnection retrieves the active connection for (user, platform)
func (r *Repository) GetActiveConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	var conn models.PlatformConnection

	query := `
		SELECT id, user_id, platform, access_token, refresh_token, token_expires_at,
		       platform_user_id, platform_username, is_active, last_used, created_at, updated_at
		FROM platform_connections
		WHERE user_id = $1 AND platform = $2 AND is_active
	`

	err := r.db.Pool.QueryRow(ctx, query, userID, platform).Scan(
		&conn.ID, &conn.UserID, &conn.Platform, &conn.AccessToken, &conn.RefreshToken,
		&conn.TokenExpiresAt, &conn.PlatformUserID, &conn.PlatformUsername, &conn.IsActive,
		&conn.LastUsed, &conn.CreatedAt, &conn.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError("connection", string(platform))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return &conn, nil
}

// UpdateTokens overwrites the token material of an active connection.
// An empty refresh token keeps the one already on file.
func (r *Repository) UpdateTokens(ctx context.Context, userID string, platform models.Platform, tokens models.TokenSet) error {
	query := `
		UPDATE platform_connections
		SET access_token = $3,
		    refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
		    token_expires_at = $5,
		    updated_at = NOW()
		WHERE user_id = $1 AND platform = $2 AND is_active
	`

	tag, err := r.db.Pool.Exec(ctx, query, userID, platform, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NotFoundError("connection", string(platform))
	}

	return nil
}

// TouchLastUsed records a successful use of the connection
func (r *Repository) TouchLastUsed(ctx context.Context, userID string, platform models.Platform, at time.Time) error {
	query := `
		UPDATE platform_connections
		SET last_used = $3, updated_at = NOW()
		WHERE user_id = $1 AND platform = $2
	`

	if _, err := r.db.Pool.Exec(ctx, query, userID, platform, at); err != nil {
		return fmt.Errorf("failed to touch connection: %w", err)
	}

	return nil
}

// DeactivateConnection soft-deletes the connection, keeping the row
func (r *Repository) DeactivateConnection(ctx context.Context, userID string, platform models.Platform) error {
	query := `
		UPDATE platform_connections
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND platform = $2
	`

	if _, err := r.db.Pool.Exec(ctx, query, userID, platform); err != nil {
		return fmt.Errorf("failed to deactivate connection: %w", err)
	}

	return nil
}

// OTPs

// CreateOTP stores a verification code
func (r *Repository) CreateOTP(ctx context.Context, otp *models.OTP) error {
	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}

	query := `
		INSERT INTO otps (id, email, code, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	if err := r.db.Pool.QueryRow(ctx, query, otp.ID, otp.Email, otp.Code, otp.ExpiresAt).Scan(&otp.CreatedAt); err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	return nil
}

// GetLatestOTP retrieves the most recent code issued for an email
func (r *Repository) GetLatestOTP(ctx context.Context, email string) (*models.OTP, error) {
	var otp models.OTP

	query := `
		SELECT id, email, code, expires_at, created_at
		FROM otps
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&otp.ID, &otp.Email, &otp.Code, &otp.ExpiresAt, &otp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.NotFoundError("otp", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}

	return &otp, nil
}

// DeleteOTPs removes every code issued for an email
func (r *Repository) DeleteOTPs(ctx context.Context, email string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM otps WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to delete otps: %w", err)
	}
	return nil
}
