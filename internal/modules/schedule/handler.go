package schedule

import (
	"net/http"
	"strings"

	"labbooking/internal/domain"
	"labbooking/internal/pkg/jwt"
	"labbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// View is the wire form of a schedule: ordered groups plus a name lookup.
type View struct {
	From      domain.Date         `json:"from"`
	To        domain.Date         `json:"to"`
	Equipment []EquipmentSchedule `json:"equipment"`
	ByName    map[string][]Entry  `json:"by_name"`
}

func NewView(s *Schedule) *View {
	return &View{From: s.From, To: s.To, Equipment: s.Equipment, ByName: s.ByName()}
}

type Handler struct {
	builder  *Builder
	hub      *Hub
	tokens   *jwt.Service
	upgrader *websocket.Upgrader
}

func NewHandler(builder *Builder, hub *Hub, tokens *jwt.Service, upgrader *websocket.Upgrader) *Handler {
	if upgrader == nil {
		upgrader = NewUpgrader(nil)
	}
	return &Handler{builder: builder, hub: hub, tokens: tokens, upgrader: upgrader}
}

// RegisterRoutes mounts the JSON view on an authenticated group and the
// websocket feed on a public one; the feed authenticates itself because
// browsers cannot set headers on websocket requests.
func (h *Handler) RegisterRoutes(authed, public *gin.RouterGroup) {
	authed.GET("/equipment-schedule", h.GetSchedule)
	public.GET("/equipment-schedule/ws", h.Live)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	date, ok := queryDate(c)
	if !ok {
		return
	}
	s, err := h.builder.Build(c.Request.Context(), date)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build schedule")
		return
	}
	response.Success(c, http.StatusOK, NewView(s))
}

// Live upgrades to a websocket that receives the schedule on connect and
// after every change. The token comes from ?token= or the Authorization
// header.
func (h *Handler) Live(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
	}
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Token is required, use ?token=<jwt>")
		return
	}
	if _, err := h.tokens.ValidateToken(token); err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
		return
	}
	date, ok := queryDate(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		_ = c.Error(err)
		return
	}
	h.hub.Serve(c.Request.Context(), conn, date)
}

func queryDate(c *gin.Context) (domain.Date, bool) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		return domain.Date{}, true
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return domain.Date{}, false
	}
	return d, true
}
