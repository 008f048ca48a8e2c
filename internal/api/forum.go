package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/forum"
)

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.deps.Forum.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) createPost(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in forum.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	post, err := s.deps.Forum.CreatePost(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) getPost(c *gin.Context) {
	post, err := s.deps.Forum.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) listReplies(c *gin.Context) {
	replies, err := s.deps.Forum.Replies(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, replies)
}

func (s *Server) createReply(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in forum.ReplyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	reply, err := s.deps.Forum.Reply(c.Request.Context(), id, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}
