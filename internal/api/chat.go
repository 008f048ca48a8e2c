package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/validation"
)

type relayRequest struct {
	SessionID string `json:"sessionId"`
	ChatID    string `json:"chatId"`
}

// relayResponse is the body of every relay reply, failures included
type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// relayChat answers the newest user turn of a session. An unreadable body
// is treated as a missing session id.
func (s *Server) relayChat(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req relayRequest
	_ = c.ShouldBindJSON(&req)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = req.ChatID
	}

	res, err := s.deps.Chat.Respond(c.Request.Context(), id, sessionID)
	if err != nil {
		writeRelayError(c, err)
		return
	}
	c.JSON(http.StatusOK, relayResponse{Success: res.Generated, Message: res.Message})
}

// writeRelayError keeps the relay body shape except where the generic
// error body carries more: per-field validation and internal failures
func writeRelayError(c *gin.Context, err error) {
	status := statusOf(err)
	if _, ok := validation.Fields(err); ok || status == http.StatusInternalServerError {
		writeError(c, err)
		return
	}
	c.AbortWithStatusJSON(status, relayResponse{Success: false, Message: publicMessage(err)})
}

type newChatRequest struct {
	Counselor string `json:"counselor"`
}

func (s *Server) newChat(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req newChatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cs, err := s.deps.Chat.NewSession(c.Request.Context(), id, req.Counselor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cs)
}

func (s *Server) listChats(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessions, err := s.deps.Chat.Sessions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (s *Server) chatMessages(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	msgs, err := s.deps.Chat.History(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type sendRequest struct {
	Content string `json:"content"`
}

// sendChat stores the user turn and relays it. A failed generation still
// leaves the user turn in the session.
func (s *Server) sendChat(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.deps.Chat.Send(c.Request.Context(), id, c.Param("id"), req.Content)
	if err != nil {
		writeRelayError(c, err)
		return
	}
	c.JSON(http.StatusOK, relayResponse{Success: res.Generated, Message: res.Message})
}

func (s *Server) deleteChat(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := s.deps.Chat.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
