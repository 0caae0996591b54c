// Package httpapi is the request/response surface: token minting, roster
// queries and the REST message entry point, which shares the realtime
// router's persist-then-broadcast path.
package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	wsadapter "github.com/parley-im/parley/internal/adapters/ws"
	"github.com/parley-im/parley/internal/app"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

// TokenMinter issues dev/test credentials. Kept as an interface so the
// production build can wire a no-op.
type TokenMinter interface {
	Mint(user domain.UserID, name string, roles []string) (string, error)
}

type API struct {
	Hub      *app.Hub
	Dir      core.Directory
	Verifier core.Verifier
	Minter   TokenMinter
}

const identityKey = "identity"

// AuthRequired verifies the bearer token and stashes the identity on the
// request context. Rejected requests never reach a handler.
func AuthRequired(v core.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
		id, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrUnauthenticated.Error()})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	id, _ := c.Get(identityKey)
	return id.(domain.Identity)
}

func SetupRouter(ctx context.Context, cfg *config.Config, api *API, ws *wsadapter.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	log.Info().Str("module", "adapters.httpapi").Str("mode", cfg.Mode).Msg("router setup")

	root := r.Group("/api")
	root.GET("/ws", func(c *gin.Context) {
		ws.Handle(ctx, c)
	})
	if cfg.AllowTokenMint {
		root.POST("/token", api.mintToken)
	}

	authed := root.Group("")
	authed.Use(AuthRequired(api.Verifier))
	authed.GET("/users/online", api.onlineUsers)
	authed.GET("/channels/:channel/users", api.channelUsers)
	authed.GET("/rooms", api.rooms)
	authed.POST("/channels/:channel/messages", api.createMessage)

	return r
}
