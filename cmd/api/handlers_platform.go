package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/platform"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

func (api *API) connector(c *gin.Context) (platform.Connector, bool) {
	conn, err := api.platforms.Get(models.Platform(c.Param("platform")))
	if err != nil {
		api.respondError(c, err)
		return nil, false
	}
	return conn, true
}

// List platform connections endpoint
func (api *API) listPlatforms(c *gin.Context) {
	statuses, err := api.platforms.Statuses(c.Request.Context(), userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, statuses)
}

// Get OAuth authorization URL endpoint
func (api *API) getAuthURL(c *gin.Context) {
	conn, ok := api.connector(c)
	if !ok {
		return
	}

	authURL, err := conn.GetAuthURL(userID(c))
	if err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"platform": conn.Platform(), "auth_url": authURL})
}

// OAuth redirect endpoint
func (api *API) platformCallback(c *gin.Context) {
	conn, ok := api.connector(c)
	if !ok {
		return
	}

	if denied := c.Query("error"); denied != "" {
		msg := c.Query("error_description")
		if msg == "" {
			msg = denied
		}
		api.respondError(c, models.NewValidationError("Authorization was not granted: "+msg))
		return
	}

	uid, err := conn.ParseState(c.Query("state"))
	if err != nil {
		api.respondError(c, err)
		return
	}

	if err := conn.ExchangeCodeForToken(c.Request.Context(), c.Query("code"), uid); err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, models.ConnectionStatus{Platform: conn.Platform(), Connected: true})
}

// Disconnect platform endpoint
func (api *API) disconnectPlatform(c *gin.Context) {
	conn, ok := api.connector(c)
	if !ok {
		return
	}

	if err := conn.Disconnect(c.Request.Context(), userID(c)); err != nil {
		api.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, models.ConnectionStatus{Platform: conn.Platform(), Connected: false})
}
