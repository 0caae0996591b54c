package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/parley-im/parley/internal/core"
	"github.com/parley-im/parley/internal/domain"
)

type mintRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	DisplayName string   `json:"display_name" binding:"required,max=64"`
	Roles       []string `json:"roles"`
}

func (a *API) mintToken(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := a.Minter.Mint(domain.UserID(req.UserID), req.DisplayName, req.Roles)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.httpapi").Msg("token mint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mint token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (a *API) onlineUsers(c *gin.Context) {
	users := a.Hub.Registry.OnlineUsers()
	c.JSON(http.StatusOK, core.OnlineUsersPayload{Count: len(users), Users: users})
}

func (a *API) channelUsers(c *gin.Context) {
	ch := domain.ChannelID(c.Param("channel"))
	c.JSON(http.StatusOK, core.RosterPayload{Channel: ch, Users: a.Hub.Presence.MembersOf(ch)})
}

func (a *API) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.Hub.Rooms.Snapshot()})
}

type createMessageRequest struct {
	Text     string             `json:"text" binding:"required_without=MediaRef"`
	MediaRef string             `json:"media_ref"`
	Kind     domain.MessageKind `json:"kind" binding:"omitempty,oneof=text image file"`
}

// createMessage is the non-realtime message entry point. It checks group
// membership through the directory (a REST caller need not hold the channel
// open), then runs the exact persist-then-broadcast path the socket uses, so
// recipients cannot tell the two apart.
func (a *API) createMessage(c *gin.Context) {
	id := identityFrom(c)
	ch := domain.ChannelID(c.Param("channel"))

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := a.Dir.GroupOf(c.Request.Context(), ch)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": core.ErrNotFound.Error()})
		return
	}
	member, err := a.Dir.IsMember(c.Request.Context(), group, id.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership lookup failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": core.ErrAccessDenied.Error()})
		return
	}

	payload := domain.MessagePayload{Text: req.Text, MediaRef: req.MediaRef, Kind: req.Kind}
	rec, err := a.Hub.Router.Publish(c.Request.Context(), ch, id.UserID, id.DisplayName, payload)
	if err != nil {
		if errors.Is(err, core.ErrPersistence) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": core.ErrPersistence.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}
