// Package quota enforces the per-user daily upload allowance attached to a tier.
//
// The daily counter is reset lazily: the first check on a new calendar day
// zeroes it. Reset-then-read is not locked across requests, so two concurrent
// uploads by the same user may both observe the same count.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/database"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/logging"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/metrics"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// InfoCache caches quota summaries. Implemented by cache.Cache.
type InfoCache interface {
	GetQuotaInfo(ctx context.Context, userID string) (*models.QuotaInfo, error)
	SetQuotaInfo(ctx context.Context, userID string, info *models.QuotaInfo, ttl time.Duration) error
	DeleteQuotaInfo(ctx context.Context, userID string) error
}

// Decision is the outcome of a quota check
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate decides whether a user may submit another upload today
type Gate struct {
	users    database.UserStore
	cache    InfoCache
	cacheTTL time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithCache enables caching of GetUserQuotaInfo results
func WithCache(c InfoCache, ttl time.Duration) Option {
	return func(g *Gate) {
		g.cache = c
		g.cacheTTL = ttl
	}
}

// NewGate creates a quota gate
func NewGate(users database.UserStore, logger *logging.Logger, opts ...Option) *Gate {
	g := &Gate{
		users:    users,
		now:      time.Now,
		logger:   logging.OrNop(logger),
		cacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// sameDay compares calendar dates in now's location
func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// loadUser returns the user after applying any pending day-rollover reset
func (g *Gate) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	if sameDay(now, user.LastResetDate) {
		return user, nil
	}

	if err := g.users.ResetDailyCount(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("failed to reset daily upload count: %w", err)
	}
	g.invalidate(ctx, userID)
	g.logger.WithUserID(userID).Debug("Daily upload count reset")

	// Re-read so the decision uses the persisted count
	return g.users.GetUser(ctx, userID)
}

// CanUpload reports whether the user may submit a new upload
func (g *Gate) CanUpload(ctx context.Context, userID string) (Decision, error) {
	user, err := g.loadUser(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	limits := models.LimitsFor(user.Tier)
	if limits.Unlimited() || user.DailyUploadCount < limits.DailyUploadLimit {
		return Decision{Allowed: true}, nil
	}

	metrics.RecordQuotaDenied(string(user.Tier))
	return Decision{
		Allowed: false,
		Reason: fmt.Sprintf("Daily upload limit reached (%d videos). Upgrade your tier for more uploads.",
			limits.DailyUploadLimit),
	}, nil
}

// IncrementUploadCount charges one upload to the user's daily counter
func (g *Gate) IncrementUploadCount(ctx context.Context, userID string) error {
	if err := g.users.IncrementUploadCount(ctx, userID); err != nil {
		return err
	}
	g.invalidate(ctx, userID)
	return nil
}

// GetUserQuotaInfo returns the caller-facing quota summary
func (g *Gate) GetUserQuotaInfo(ctx context.Context, userID string) (*models.QuotaInfo, error) {
	if g.cache != nil {
		info, err := g.cache.GetQuotaInfo(ctx, userID)
		if err != nil {
			g.logger.WarnWithErr("Quota cache read failed", err)
		}
		metrics.RecordCacheAccess("quota", info != nil)
		if info != nil {
			return info, nil
		}
	}

	user, err := g.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits := models.LimitsFor(user.Tier)
	info := &models.QuotaInfo{
		Tier:       user.Tier,
		DailyLimit: limits.DailyUploadLimit,
		Used:       user.DailyUploadCount,
		Remaining:  models.UnlimitedUploads,
	}
	if !limits.Unlimited() {
		info.Remaining = limits.DailyUploadLimit - user.DailyUploadCount
		if info.Remaining < 0 {
			info.Remaining = 0
		}
	}

	if g.cache != nil {
		if err := g.cache.SetQuotaInfo(ctx, userID, info, g.ttlUntilMidnight()); err != nil {
			g.logger.WarnWithErr("Quota cache write failed", err)
		}
	}

	return info, nil
}

// ttlUntilMidnight keeps cached summaries from outliving the calendar day
func (g *Gate) ttlUntilMidnight() time.Duration {
	now := g.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	if left := midnight.Sub(now); left < g.cacheTTL {
		return left
	}
	return g.cacheTTL
}

func (g *Gate) invalidate(ctx context.Context, userID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.DeleteQuotaInfo(ctx, userID); err != nil {
		g.logger.WarnWithErr("Quota cache invalidation failed", err)
	}
}
