package platform

import (
	"context"
	"fmt"

	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Registry resolves a platform to its connector
type Registry struct {
	connectors map[models.Platform]Connector
}

// NewRegistry indexes the given connectors by platform. Later entries win.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[models.Platform]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.Platform()] = c
	}
	return r
}

// NewDefaultRegistry wires one connector per supported platform
func NewDefaultRegistry(cfg config.PlatformsConfig, deps Deps) *Registry {
	return NewRegistry(
		NewYouTubeConnector(cfg.YouTube, deps),
		NewTikTokConnector(cfg.TikTok, deps),
		NewInstagramConnector(deps),
		NewFacebookConnector(deps),
	)
}

// Get returns the connector for p
func (r *Registry) Get(p models.Platform) (Connector, error) {
	c, ok := r.connectors[p]
	if !ok {
		return nil, models.NewValidationError(fmt.Sprintf("unsupported platform %q", p))
	}
	return c, nil
}

// Statuses reports the connection state of every supported platform for a user
func (r *Registry) Statuses(ctx context.Context, userID string) ([]models.ConnectionStatus, error) {
	statuses := make([]models.ConnectionStatus, 0, len(models.SupportedPlatforms))
	for _, p := range models.SupportedPlatforms {
		c, ok := r.connectors[p]
		if !ok {
			continue
		}

		connected, err := c.IsConnected(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s connection: %w", p, err)
		}
		statuses = append(statuses, models.ConnectionStatus{Platform: p, Connected: connected})
	}
	return statuses, nil
}
