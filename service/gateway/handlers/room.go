package handlers

import (
	"github.com/Stormrider66/hockey-hub-sub043/service/gateway"
	decode "github.com/Stormrider66/hockey-hub-sub043/tools/decode"
	errs "github.com/Stormrider66/hockey-hub-sub043/tools/errs"
)

// RoomJoinHandler handles the generic channel join. On allow it
// answers with the channel's member list and gives the owning domain
// hook its chance to seed tracking state and send a backfill. On deny
// nothing is mutated and the requester alone gets the typed denial.
type RoomJoinHandler struct{}

func NewRoomJoinHandler() gateway.Handler { return &RoomJoinHandler{} }

func (h *RoomJoinHandler) Event() string { return gateway.EvtRoomJoin }

func (h *RoomJoinHandler) Handle(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.RoomJoinPayload](f.Data)
	if err != nil {
		return err
	}

	users, jerr := ctx.S.Mgr().JoinChannel(c, p.RoomType, p.RoomID)
	if jerr != nil {
		ce, _ := errs.AsCodeError(jerr)
		c.SendEvent(gateway.EvtRoomDenied, gateway.RoomDeniedPayload{
			RoomType: p.RoomType,
			RoomID:   p.RoomID,
			Code:     ce.Code,
			Message:  ce.Msg,
		})
		return nil
	}

	ctx.S.Mgr().BroadcastToChannel(p.RoomType, p.RoomID, gateway.EvtRoomUsersUpdate, gateway.RoomUsersPayload{
		RoomID: p.RoomID,
		Users:  users,
	}, nil)

	if hook := ctx.S.Hook(p.RoomType); hook != nil {
		hook.OnJoin(ctx, c, p.RoomID, p.Metadata)
	}
	return nil
}

// RoomLeaveHandler is idempotent: leaving a channel you are not in is
// a no-op.
type RoomLeaveHandler struct{}

func NewRoomLeaveHandler() gateway.Handler { return &RoomLeaveHandler{} }

func (h *RoomLeaveHandler) Event() string { return gateway.EvtRoomLeave }

func (h *RoomLeaveHandler) Handle(ctx *gateway.Context, c *gateway.WsConn, f *gateway.Frame) error {
	p, err := decode.DecodeMap[gateway.RoomLeavePayload](f.Data)
	if err != nil {
		return err
	}

	if hook := ctx.S.Hook(p.RoomType); hook != nil {
		hook.OnLeave(ctx, c, p.RoomID)
	}
	ctx.S.Mgr().LeaveChannel(c, p.RoomType, p.RoomID)

	ctx.S.Mgr().BroadcastToChannel(p.RoomType, p.RoomID, gateway.EvtRoomUsersUpdate, gateway.RoomUsersPayload{
		RoomID: p.RoomID,
		Users:  ctx.S.Mgr().ChannelUserIDs(p.RoomType, p.RoomID),
	}, nil)
	return nil
}
