package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/college-admin/backend/internal/auth"
	"github.com/college-admin/backend/internal/config"
	"github.com/college-admin/backend/internal/events"
	"github.com/college-admin/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TimelineHub forwards audit events to websocket clients watching the
// subject the event belongs to.
type TimelineHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger

	mu       sync.RWMutex
	watchers map[uuid.UUID][]*websocket.Conn
}

func NewTimelineHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *TimelineHub {
	return &TimelineHub{
		cfg:        cfg,
		subscriber: subscriber,
		log:        log,
		watchers:   make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *TimelineHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamAudit, h.dispatch)
}

func (h *TimelineHub) dispatch(event events.Event) {
	subjectID, ok := event.SubjectID()
	if !ok {
		h.log.Warn("audit event without subject", zap.String("type", event.Type))
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.watchers[subjectID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("websocket write failed", zap.String("subject_id", subjectID.String()), zap.Error(err))
		}
	}
}

// Watchers reports how many connections follow subjectID.
func (h *TimelineHub) Watchers(subjectID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[subjectID])
}

func (h *TimelineHub) add(subjectID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	h.watchers[subjectID] = append(h.watchers[subjectID], conn)
	h.mu.Unlock()
}

func (h *TimelineHub) remove(subjectID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.watchers[subjectID]
	for i, c := range conns {
		if c == conn {
			h.watchers[subjectID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.watchers[subjectID]) == 0 {
		delete(h.watchers, subjectID)
	}
}

// Upgrade authenticates the handshake before the protocol switch. Browsers
// cannot set headers on websocket requests, so the token comes in ?token=.
func (h *TimelineHub) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if _, err := uuid.Parse(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid id")
		}
		claims, err := auth.ParseJWT(h.cfg.JWTSecret, c.Query("token"))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		if !rbac.HasPermission(claims.Role, rbac.PermViewActivity) {
			return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func (h *TimelineHub) HandleWS(conn *websocket.Conn) {
	subjectID, err := uuid.Parse(conn.Params("id"))
	if err != nil {
		conn.Close()
		return
	}

	h.add(subjectID, conn)
	defer func() {
		h.remove(subjectID, conn)
		conn.Close()
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
