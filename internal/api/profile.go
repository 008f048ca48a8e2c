package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/constants"
	"github.com/julianstephens/rehab/internal/coping"
	"github.com/julianstephens/rehab/internal/tracker"
	"github.com/julianstephens/rehab/internal/utils"
)

// TimezoneHeader lets clients have "today" computed in their own zone
const TimezoneHeader = "X-Timezone"

// now is the request time in the caller's zone when the header names a valid one
func (s *Server) now(c *gin.Context) time.Time {
	now := s.deps.Now()
	if tz := c.GetHeader(TimezoneHeader); tz != "" {
		if loc, err := utils.LoadLocation(tz); err == nil {
			return now.In(loc)
		}
	}
	return now
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.Require(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return auth.Identity{}, false
	}
	return id, true
}

func (s *Server) signUp(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	p, err := s.deps.Tracker.SignUp(c.Request.Context(), id, s.now(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) getProfile(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	p, err := s.deps.Tracker.Profile(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) setGoal(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var in tracker.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.deps.Tracker.SetGoal(c.Request.Context(), id, in, s.now(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type logRequest struct {
	Consumed bool   `json:"consumed"`
	Notes    string `json:"notes"`
}

func (s *Server) logDay(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.deps.Tracker.LogDay(c.Request.Context(), id, req.Consumed, req.Notes, s.now(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) addReason(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.deps.Tracker.AddReason(c.Request.Context(), id, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	s.getProfile(c)
}

// removeReason takes the reason from the body or, for clients that cannot
// send a DELETE body, from the reason query parameter
func (s *Server) removeReason(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	req := reasonRequest{Reason: c.Query("reason")}
	if req.Reason == "" {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := s.deps.Tracker.RemoveReason(c.Request.Context(), id, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	s.getProfile(c)
}

func (s *Server) dashboard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	d, err := s.deps.Tracker.Dashboard(c.Request.Context(), id, s.now(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) affirmation(c *gin.Context) {
	now := s.now(c)
	c.JSON(http.StatusOK, gin.H{
		"date":        utils.DateKey(now),
		"affirmation": s.deps.Tracker.Affirmation(now),
	})
}

func (s *Server) resources(c *gin.Context) {
	c.JSON(http.StatusOK, constants.Resources)
}

type copeRequest struct {
	Triggers string `json:"triggers"`
	Progress string `json:"progress"`
}

// cope fills addiction type and progress from the profile unless the client overrides progress
func (s *Server) cope(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req copeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := s.deps.Tracker.Dashboard(c.Request.Context(), id, s.now(c))
	if err != nil {
		writeError(c, err)
		return
	}
	in := coping.Input{
		AddictionType: string(d.Profile.AddictionType),
		Progress:      req.Progress,
		Triggers:      req.Triggers,
	}
	if in.Progress == "" {
		in.Progress = coping.DefaultProgress(d.SoberDays)
	}

	strategies, err := s.deps.Coping.Suggest(c.Request.Context(), id.UserID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
