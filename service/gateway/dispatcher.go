package gateway

import (
	"fmt"

	"github.com/Stormrider66/hockey-hub-sub043/logger"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// Handler processes one named wire event.
type Handler interface {
	Event() string
	Handle(ctx *Context, c *WsConn, f *Frame) error
}

// Context hands handlers the server's collaborators without exposing
// the registry maps themselves.
type Context struct {
	S *Server
}

type handlerFunc struct {
	event string
	fn    func(ctx *Context, c *WsConn, f *Frame) error
}

func (h *handlerFunc) Event() string { return h.event }
func (h *handlerFunc) Handle(ctx *Context, c *WsConn, f *Frame) error {
	return h.fn(ctx, c, f)
}

// HandlerFunc adapts a bare function into a Handler.
func HandlerFunc(event string, fn func(ctx *Context, c *WsConn, f *Frame) error) Handler {
	return &handlerFunc{event: event, fn: fn}
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Get(event string) Handler {
	return d.handlers[event]
}

// Dispatch routes a frame to its handler. A panicking or failing
// handler is contained here: the error is logged with connection
// context and swallowed so one handler cannot take down the read loop
// or other connections. Typed operation denials are the handler's own
// responsibility to deliver; anything else surfacing to this boundary
// is an internal dispatch error.
func (d *Dispatcher) Dispatch(ctx *Context, c *WsConn, f *Frame) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[dispatch] panic in %s conn=%s user=%s: %v",
				f.Event, c.ConnID, c.UserID(), r)
		}
	}()

	h, ok := d.handlers[f.Event]
	if !ok {
		logger.Infof("[dispatch] no handler for event=%s conn=%s", f.Event, c.ConnID)
		return
	}
	if err := h.Handle(ctx, c, f); err != nil {
		if ce, ok := errs.AsCodeError(err); ok {
			logger.Infof("[dispatch] %s denied conn=%s user=%s: %v", f.Event, c.ConnID, c.UserID(), ce)
			return
		}
		logger.Error(fmt.Sprintf("[dispatch] %s failed conn=%s user=%s: %v",
			f.Event, c.ConnID, c.UserID(), err))
	}
}
