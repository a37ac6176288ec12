package gateway

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
	"github.com/Stormrider66/hockey-hub-sub043/service/storage"
	ids "github.com/Stormrider66/hockey-hub-sub043/tools/ids"
	security "github.com/Stormrider66/hockey-hub-sub043/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broker topics shared with the ingest side.
const (
	TopicActivity      = "hub.activity"       // inbound ActivityEntry records
	TopicGatewayEvents = "hub.gateway.events" // outbound mutation audit
)

// EventProducer is the fire-and-forget sink for mutation audit records
// (kafka in production). Nil-safe at the call site.
type EventProducer interface {
	Emit(topic string, value []byte)
}

// DomainHook gives a domain handler a say at channel join/leave time:
// seeding its tracking structures and sending the join backfill.
type DomainHook interface {
	ChannelType() string
	OnJoin(ctx *Context, c *WsConn, channelID string, meta map[string]any)
	OnLeave(ctx *Context, c *WsConn, channelID string)
}

type Server struct {
	gwID     string
	mgr      *ConnManager
	disp     *Dispatcher
	verifier *security.Verifier
	bcast    *Broadcaster
	activity *storage.ActivityCache
	producer EventProducer
	hooks    map[string]DomainHook
}

func NewServer(gwID string, verifier *security.Verifier, mgr *ConnManager, bcast *Broadcaster, activity *storage.ActivityCache) *Server {
	return &Server{
		gwID:     gwID,
		mgr:      mgr,
		disp:     NewDispatcher(),
		verifier: verifier,
		bcast:    bcast,
		activity: activity,
		hooks:    make(map[string]DomainHook),
	}
}

func (s *Server) Mgr() *ConnManager            { return s.mgr }
func (s *Server) Disp() *Dispatcher            { return s.disp }
func (s *Server) Bcast() *Broadcaster          { return s.bcast }
func (s *Server) Activity() *storage.ActivityCache { return s.activity }

func (s *Server) RegisterHandler(h Handler) { s.disp.Register(h) }

func (s *Server) RegisterHook(h DomainHook) { s.hooks[h.ChannelType()] = h }

func (s *Server) Hook(ctype string) DomainHook { return s.hooks[ctype] }

func (s *Server) SetProducer(p EventProducer) { s.producer = p }

// Emit publishes a mutation audit record downstream. No-op without a
// producer; never blocks the event path.
func (s *Server) Emit(topic, event string, data any) {
	if s.producer == nil {
		return
	}
	payload := EncodeFrame(event, data)
	if payload == nil {
		return
	}
	s.producer.Emit(topic, payload)
}

// ExtractToken pulls the bearer credential out of the handshake
// request, trying the dedicated token header, the Authorization
// header, then the query parameter — in that priority order.
func ExtractToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.GetHeader("X-Auth-Token")); tok != "" {
		return tok
	}
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

// HandleWS upgrades, authenticates, registers and then pumps one
// client connection. Authentication failures are terminal: the typed
// error goes down the fresh socket and the socket closes without any
// registry state having been created.
func (s *Server) HandleWS(c *gin.Context) {
	token := ExtractToken(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	id, verr := s.authenticate(token)
	if verr != nil {
		ce, _ := errs.AsCodeError(verr)
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = ws.WriteMessage(websocket.TextMessage, EncodeFrame(EvtConnectionError, ErrorPayload{
			Code:    ce.Code,
			Message: ce.Msg,
		}))
		_ = ws.Close()
		return
	}

	conn := NewWsConn(ids.GenerateString(), id, ws)
	go conn.WritePump()

	s.mgr.Connect(conn)
	defer s.mgr.Disconnect(conn)

	conn.SendEvent(EvtConnectionSuccess, ConnectionSuccessPayload{
		UserID:       id.UserID,
		ConnectionID: conn.ConnID,
	})
	logger.Infof("[ws] connected conn=%s user=%s org=%s remote=%s",
		conn.ConnID, id.UserID, id.OrganizationID, c.Request.RemoteAddr)

	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := &Context{S: s}
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			s.logReadExit(conn, rerr)
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		f, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", conn.ConnID, perr, sample)
			continue
		}
		// frames from one connection dispatch in arrival order
		s.disp.Dispatch(ctx, conn, f)
	}
}

// authenticate never touches registry state on failure.
func (s *Server) authenticate(token string) (*security.Identity, error) {
	if token == "" {
		return nil, errs.ErrAuthenticationRequired
	}
	return s.verifier.Verify(token)
}

func (s *Server) logReadExit(conn *WsConn, rerr error) {
	switch {
	case websocket.IsCloseError(rerr,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived):
		logger.Infof("[ws] peer closed conn=%s user=%s", conn.ConnID, conn.UserID())
	default:
		if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
			logger.Infof("[ws] read timeout conn=%s user=%s", conn.ConnID, conn.UserID())
			return
		}
		logger.Infof("[ws] read err conn=%s user=%s err=%v", conn.ConnID, conn.UserID(), rerr)
	}
}

// ===== HTTP surface =====

func (s *Server) HandleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// HandleStats serves the observability snapshot for health/metrics
// scraping.
func (s *Server) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.mgr.Stats())
}

type broadcastRequest struct {
	Target string         `json:"target" binding:"required"` // org | team | user | role
	ID     string         `json:"id" binding:"required"`
	Role   string         `json:"role,omitempty"`
	Event  string         `json:"event" binding:"required"`
	Data   map[string]any `json:"data,omitempty"`
}

// HandleBroadcast is the REST face of the facade for trusted internal
// services. Empty channels are not an error: the response just carries
// delivered=0.
func (s *Server) HandleBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var n int
	switch req.Target {
	case "org":
		n = s.bcast.ToOrganization(req.ID, req.Event, req.Data)
	case "team":
		n = s.bcast.ToTeam(req.ID, req.Event, req.Data)
	case "user":
		n = s.bcast.ToUser(req.ID, req.Event, req.Data)
	case "role":
		if req.Role == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role required for role target"})
			return
		}
		n = s.bcast.ToRole(req.ID, req.Role, req.Event, req.Data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown target: " + req.Target})
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivered": n})
}
