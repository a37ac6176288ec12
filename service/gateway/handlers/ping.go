package handlers

import (
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
)

type PingHandler struct{}

func NewPingHandler() gateway.Handler { return &PingHandler{} }

func (h *PingHandler) Event() string { return gateway.EvtPing }

func (h *PingHandler) Handle(_ *gateway.Context, c *gateway.WsConn, _ *gateway.Frame) error {
	c.SendEvent(gateway.EvtPong, nil)
	return nil
}
