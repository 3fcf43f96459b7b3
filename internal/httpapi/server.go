// Package httpapi is the operator-facing admin API: inspect queues and
// timers, force a reset or a close.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jose-valero/party-queue-bot/internal/queue"
)

// QueueService is the part of the orchestration service the API drives.
type QueueService interface {
	States(ctx context.Context, guildID string) ([]queue.State, error)
	State(ctx context.Context, handle string) (queue.State, error)
	ResetQueue(ctx context.Context, handle string) (queue.State, error)
	CloseQueue(ctx context.Context, handle string) error
}

type TimerView interface {
	Snapshot() map[string]time.Time
}

type Server struct {
	svc    QueueService
	timers TimerView
	secret []byte
	log    *slog.Logger
}

func New(svc QueueService, timers TimerView, secret []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, timers: timers, secret: secret, log: log.With("component", "httpapi")}
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api", AuthMiddleware(s.secret))
	api.GET("/guilds/:guildID/queues", s.listGuildQueues)
	api.GET("/queues/:handle", s.getQueue)
	api.POST("/queues/:handle/reset", s.resetQueue)
	api.DELETE("/queues/:handle", s.closeQueue)
	api.GET("/timers", s.listTimers)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"operator", c.GetString(ContextOperatorKey),
			"took", time.Since(start),
		)
	}
}

type memberView struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
}

type queueView struct {
	Handle    string       `json:"handle"`
	GuildID   string       `json:"guild_id"`
	ChannelID string       `json:"channel_id"`
	Type      string       `json:"type"`
	Capacity  int          `json:"capacity"`
	Status    string       `json:"status"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Members   []memberView `json:"members"`
}

func toView(st queue.State) queueView {
	v := queueView{
		Handle:    st.Queue.Handle,
		GuildID:   st.Queue.GuildID,
		ChannelID: st.Queue.ChannelID,
		Type:      string(st.Queue.Type),
		Capacity:  st.Queue.Capacity,
		Status:    string(st.Queue.Status),
		ExpiresAt: st.Queue.ExpiresAt,
		CreatedAt: st.Queue.CreatedAt,
		Members:   make([]memberView, 0, len(st.Members)),
	}
	for _, m := range st.Members {
		v.Members = append(v.Members, memberView{
			PlayerID:    m.PlayerID,
			DisplayName: m.DisplayName,
			Role:        string(m.Role),
			JoinedAt:    m.JoinedAt,
		})
	}
	return v
}

func (s *Server) listGuildQueues(c *gin.Context) {
	states, err := s.svc.States(c.Request.Context(), c.Param("guildID"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]queueView, 0, len(states))
	for _, st := range states {
		out = append(out, toView(st))
	}
	c.JSON(http.StatusOK, gin.H{"queues": out})
}

func (s *Server) getQueue(c *gin.Context) {
	st, err := s.svc.State(c.Request.Context(), c.Param("handle"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(st))
}

func (s *Server) resetQueue(c *gin.Context) {
	st, err := s.svc.ResetQueue(c.Request.Context(), c.Param("handle"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("queue reset by operator", "handle", st.Queue.Handle, "operator", c.GetString(ContextOperatorKey))
	c.JSON(http.StatusOK, toView(st))
}

func (s *Server) closeQueue(c *gin.Context) {
	handle := c.Param("handle")
	if err := s.svc.CloseQueue(c.Request.Context(), handle); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("queue closed by operator", "handle", handle, "operator", c.GetString(ContextOperatorKey))
	c.Status(http.StatusNoContent)
}

type timerView struct {
	Handle    string    `json:"handle"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) listTimers(c *gin.Context) {
	snap := s.timers.Snapshot()
	out := make([]timerView, 0, len(snap))
	for h, at := range snap {
		out = append(out, timerView{Handle: h, ExpiresAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	c.JSON(http.StatusOK, gin.H{"timers": out})
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"msg": err.Error()})
	case queue.IsUserError(err):
		c.JSON(http.StatusConflict, gin.H{"msg": err.Error()})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
	}
}
