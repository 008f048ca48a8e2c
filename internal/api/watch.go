package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/julianstephens/rehab/internal/auth"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/storage"
	"github.com/julianstephens/rehab/internal/validation"
)

const (
	watchBuffer     = 64
	watchWriteWait  = 10 * time.Second
	watchPongWait   = 60 * time.Second
	watchPingPeriod = watchPongWait * 9 / 10
)

// subscribedFrame is the first frame of every watch. Changes committed after
// it are delivered.
type subscribedFrame struct {
	Subscribed storage.Ref `json:"subscribed"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// watch upgrades to a websocket and pushes a storage.Change frame for every
// committed write under the requested ref until the client disconnects
func (s *Server) watch(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	ref, err := s.watchRef(c, id)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade watch connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	changes := make(chan storage.Change, watchBuffer)
	unsubscribe, err := s.deps.Store.Watch(ctx, ref, func(ch storage.Change) {
		select {
		case changes <- ch:
		default:
			logger.Warn("Dropping watch frame for slow client", "user", id.UserID, "collection", ch.Ref.Collection)
		}
	})
	if err != nil {
		logger.Error("Failed to subscribe", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"), time.Now().Add(watchWriteWait))
		return
	}
	defer unsubscribe()

	if s.deps.Metrics != nil {
		s.deps.Metrics.watchersCurrent.Inc()
		defer s.deps.Metrics.watchersCurrent.Dec()
	}
	logger.Debug("Watch opened", "user", id.UserID, "collection", ref.Collection, "id", ref.ID)

	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
	if err := conn.WriteJSON(subscribedFrame{Subscribed: ref}); err != nil {
		return
	}

	go readPump(conn, cancel)

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-changes:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(ch); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels the watch once the peer goes away
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// watchRef limits subscriptions to the caller's own profile and chats. The
// forum is public.
func (s *Server) watchRef(c *gin.Context, id auth.Identity) (storage.Ref, error) {
	coll, err := storage.ParseCollection(c.Query("collection"))
	if err != nil {
		return storage.Ref{}, validation.Invalid("collection", "must be one of profiles, chats, forum_posts")
	}
	ref := storage.Ref{Collection: coll, ID: c.Query("id")}

	switch coll {
	case storage.CollectionProfiles:
		if ref.ID == "" {
			ref.ID = id.UserID
		}
		if ref.ID != id.UserID {
			return storage.Ref{}, storage.ErrNotFound
		}
	case storage.CollectionChats:
		if ref.ID == "" {
			return storage.Ref{}, validation.Invalid("id", "is required")
		}
		if _, err := s.deps.Chat.Session(c.Request.Context(), id, ref.ID); err != nil {
			return storage.Ref{}, err
		}
	}
	return ref, nil
}
