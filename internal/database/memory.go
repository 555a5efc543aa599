package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

type connKey struct {
	userID   string
	platform models.Platform
}

// MemoryStore is a Store kept in process memory. It backs tests and
// single-node development runs without PostgreSQL.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*models.User
	videos      map[string]*models.Video
	connections map[connKey]*models.PlatformConnection
	otps        map[string][]*models.OTP
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		videos:      make(map[string]*models.Video),
		connections: make(map[connKey]*models.PlatformConnection),
		otps:        make(map[string][]*models.OTP),
		now:         time.Now,
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyVideo(v *models.Video) *models.Video {
	c := *v
	c.TargetPlatforms = append([]models.Platform(nil), v.TargetPlatforms...)
	c.Metadata = append(models.PlatformMetadata(nil), v.Metadata...)
	c.UploadResults = make(models.UploadResults, len(v.UploadResults))
	for p, r := range v.UploadResults {
		c.UploadResults[p] = r
	}
	if v.EnqueuedAt != nil {
		t := *v.EnqueuedAt
		c.EnqueuedAt = &t
	}
	return &c
}

func copyConnection(conn *models.PlatformConnection) *models.PlatformConnection {
	c := *conn
	if conn.TokenExpiresAt != nil {
		t := *conn.TokenExpiresAt
		c.TokenExpiresAt = &t
	}
	if conn.LastUsed != nil {
		t := *conn.LastUsed
		c.LastUsed = &t
	}
	return &c
}

// Users

// CreateUser stores a new user; email must be unique
func (m *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("user with email %s: %w", user.Email, models.ErrAlreadyExists)
		}
	}

	now := m.now()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Tier == "" {
		user.Tier = models.TierBasic
	}
	if user.LastResetDate.IsZero() {
		user.LastResetDate = now
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	m.users[user.ID] = copyUser(user)
	return nil
}

// GetUser retrieves a user by ID
func (m *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, models.NotFoundError("user", id)
	}
	return copyUser(u), nil
}

// GetUserByEmail retrieves a user by email
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, models.NotFoundError("user", email)
}

// ResetDailyCount zeroes the daily counter and records the reset time
func (m *MemoryStore) ResetDailyCount(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.NotFoundError("user", id)
	}
	u.DailyUploadCount = 0
	u.LastResetDate = at
	u.UpdatedAt = m.now()
	return nil
}

// IncrementUploadCount adds exactly one upload to the daily counter
func (m *MemoryStore) IncrementUploadCount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.NotFoundError("user", id)
	}
	u.DailyUploadCount++
	u.UpdatedAt = m.now()
	return nil
}

// Videos

// CreateVideo stores a new video
func (m *MemoryStore) CreateVideo(ctx context.Context, video *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if video.ID == "" {
		video.ID = uuid.New().String()
	}
	if _, exists := m.videos[video.ID]; exists {
		return fmt.Errorf("video %s: %w", video.ID, models.ErrAlreadyExists)
	}
	if video.Status == "" {
		video.Status = models.VideoStatusPending
	}
	if video.UploadResults == nil {
		video.UploadResults = make(models.UploadResults)
	}

	now := m.now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now

	m.videos[video.ID] = copyVideo(video)
	return nil
}

// GetVideo retrieves a video by ID
func (m *MemoryStore) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.videos[id]
	if !ok {
		return nil, models.NotFoundError("video", id)
	}
	return copyVideo(v), nil
}

// ListVideosByUser retrieves a user's videos, newest first
func (m *MemoryStore) ListVideosByUser(ctx context.Context, userID string, limit int) ([]*models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var videos []*models.Video
	for _, v := range m.videos {
		if v.UserID == userID {
			videos = append(videos, copyVideo(v))
		}
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})

	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// ListStalePendingVideos retrieves never-enqueued pending videos created before the cutoff
func (m *MemoryStore) ListStalePendingVideos(ctx context.Context, createdBefore time.Time, limit int) ([]*models.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var videos []*models.Video
	for _, v := range m.videos {
		if v.Status == models.VideoStatusPending && v.EnqueuedAt == nil && v.CreatedAt.Before(createdBefore) {
			videos = append(videos, copyVideo(v))
		}
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	})

	if limit > 0 && len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// MarkVideoEnqueued stamps the time a dispatch job for the video was published
func (m *MemoryStore) MarkVideoEnqueued(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return models.NotFoundError("video", id)
	}
	v.EnqueuedAt = &at
	return nil
}

// UpdateVideoStatus sets the status of a video
func (m *MemoryStore) UpdateVideoStatus(ctx context.Context, id string, status models.VideoStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return models.NotFoundError("video", id)
	}
	v.Status = status
	v.UpdatedAt = m.now()
	return nil
}

// UpdateVideoResult sets status and upload results under one lock
func (m *MemoryStore) UpdateVideoResult(ctx context.Context, id string, status models.VideoStatus, results models.UploadResults) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[id]
	if !ok {
		return models.NotFoundError("video", id)
	}

	v.Status = status
	v.UploadResults = make(models.UploadResults, len(results))
	for p, r := range results {
		v.UploadResults[p] = r
	}
	v.UpdatedAt = m.now()
	return nil
}

// DeleteVideo removes a video record
func (m *MemoryStore) DeleteVideo(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.videos[id]; !ok {
		return models.NotFoundError("video", id)
	}
	delete(m.videos, id)
	return nil
}

// Platform connections

// UpsertConnection creates or replaces the connection for (user, platform).
// An empty refresh token keeps the one already on file.
func (m *MemoryStore) UpsertConnection(ctx context.Context, conn *models.PlatformConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := connKey{conn.UserID, conn.Platform}

	if existing, ok := m.connections[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		conn.LastUsed = existing.LastUsed
		if conn.RefreshToken == "" {
			conn.RefreshToken = existing.RefreshToken
		}
	} else {
		if conn.ID == "" {
			conn.ID = uuid.New().String()
		}
		conn.CreatedAt = now
	}

	conn.IsActive = true
	conn.UpdatedAt = now
	m.connections[key] = copyConnection(conn)
	return nil
}

// GetActiveConnection retrieves the active connection for (user, platform)
func (m *MemoryStore) GetActiveConnection(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[connKey{userID, platform}]
	if !ok || !conn.IsActive {
		return nil, models.NotFoundError("connection", string(platform))
	}
	return copyConnection(conn), nil
}

// UpdateTokens overwrites the token material of an active connection
func (m *MemoryStore) UpdateTokens(ctx context.Context, userID string, platform models.Platform, tokens models.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connKey{userID, platform}]
	if !ok || !conn.IsActive {
		return models.NotFoundError("connection", string(platform))
	}

	conn.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		conn.RefreshToken = tokens.RefreshToken
	}
	conn.TokenExpiresAt = nil
	if tokens.ExpiresAt != nil {
		t := *tokens.ExpiresAt
		conn.TokenExpiresAt = &t
	}
	conn.UpdatedAt = m.now()
	return nil
}

// TouchLastUsed records a successful use of the connection
func (m *MemoryStore) TouchLastUsed(ctx context.Context, userID string, platform models.Platform, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.connections[connKey{userID, platform}]; ok {
		conn.LastUsed = &at
		conn.UpdatedAt = m.now()
	}
	return nil
}

// DeactivateConnection soft-deletes the connection, keeping the row
func (m *MemoryStore) DeactivateConnection(ctx context.Context, userID string, platform models.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.connections[connKey{userID, platform}]; ok {
		conn.IsActive = false
		conn.UpdatedAt = m.now()
	}
	return nil
}

// OTPs

// CreateOTP stores a verification code
func (m *MemoryStore) CreateOTP(ctx context.Context, otp *models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}
	otp.CreatedAt = m.now()

	c := *otp
	m.otps[otp.Email] = append(m.otps[otp.Email], &c)
	return nil
}

// GetLatestOTP retrieves the most recent code issued for an email
func (m *MemoryStore) GetLatestOTP(ctx context.Context, email string) (*models.OTP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := m.otps[email]
	if len(codes) == 0 {
		return nil, models.NotFoundError("otp", email)
	}
	c := *codes[len(codes)-1]
	return &c, nil
}

// DeleteOTPs removes every code issued for an email
func (m *MemoryStore) DeleteOTPs(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.otps, email)
	return nil
}
