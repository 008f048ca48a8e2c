// Package api is the JSON HTTP surface of rehab serve.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/chat"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/coping"
	"github.com/julianstephens/rehab/internal/forum"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/tracker"
)

// Deps are the services the handlers call. Metrics may be nil.
type Deps struct {
	Store   storage.Provider
	Tracker *tracker.Service
	Chat    *chat.Service
	Forum   *forum.Service
	Coping  *coping.Suggester
	Issuer  *auth.Issuer
	Metrics *Metrics
	Now     func() time.Time
}

type Server struct {
	deps   Deps
	engine *gin.Engine
}

func NewServer(deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps, engine: gin.New()}
	s.engine.Use(requestLogger(), gin.CustomRecovery(recoverJSON))
	if deps.Metrics != nil {
		s.engine.Use(deps.Metrics.middleware())
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/health", s.health)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	authed := requireIdentity(s.deps.Issuer)
	r.POST("/api/chat", authed, s.relayChat)

	v1 := r.Group("/v1", authed)
	{
		v1.POST("/profile", s.signUp)
		v1.GET("/profile", s.getProfile)
		v1.PATCH("/profile", s.setGoal)
		v1.POST("/profile/log", s.logDay)
		v1.POST("/profile/reasons", s.addReason)
		v1.DELETE("/profile/reasons", s.removeReason)

		v1.GET("/dashboard", s.dashboard)
		v1.GET("/affirmation", s.affirmation)
		v1.GET("/resources", s.resources)
		v1.POST("/coping", s.cope)

		chats := v1.Group("/chats")
		{
			chats.POST("", s.newChat)
			chats.GET("", s.listChats)
			chats.GET("/:id/messages", s.chatMessages)
			chats.POST("/:id/messages", s.sendChat)
			chats.DELETE("/:id", s.deleteChat)
		}

		posts := v1.Group("/forum/posts")
		{
			posts.GET("", s.listPosts)
			posts.POST("", s.createPost)
			posts.GET("/:id", s.getPost)
			posts.GET("/:id/replies", s.listReplies)
			posts.POST("/:id/replies", s.createReply)
		}

		v1.GET("/watch", s.watch)
	}
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": constants.Version,
		"storage": s.deps.Store.GetConfigPath(),
	})
}
