package handler

import (
	"errors"

	"github.com/airtrap/server/internal/core/event"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// HandleCreateRoom creates a public room and moves the creator into it.
// The ack carries 1 only when the creator also managed to join.
func (d *Deps) HandleCreateRoom(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.CreateRoomPayload
	if err := payload.DecodeFrom(p); err != nil {
		d.Log.Debug("CreateRoom 格式錯誤", zap.Uint32("session", s.ID), zap.Error(err))
		return
	}

	pl, ok := d.player(s)
	if !ok {
		d.sendStatus(s.ID, packet.OpCreateRoom, false)
		return
	}

	r := d.Rooms.CreateRoom(s.ID, payload.RoomName, payload.MaxPlayers,
		payload.Difficulty, payload.Speed, payload.LevelID, payload.Seed, payload.Duration)
	_, err := d.Rooms.Join(pl, r.ID, false)
	if err == nil {
		s.SetState(packet.StateRoom)
	}
	d.Log.Info("房間建立",
		zap.Uint32("room", r.ID),
		zap.String("name", r.Name),
		zap.Uint32("owner", s.ID),
	)
	d.sendStatus(s.ID, packet.OpCreateRoom, err == nil)
}

// HandleJoinRoom moves the session into the target room. Failures answer
// with a zero status; joining a running game additionally triggers the
// StartGame + full-entity resync for the late joiner.
func (d *Deps) HandleJoinRoom(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.JoinRoomPayload
	if err := payload.DecodeFrom(p); err != nil {
		d.Log.Debug("JoinRoom 格式錯誤", zap.Uint32("session", s.ID), zap.Error(err))
		return
	}

	pl, ok := d.player(s)
	if !ok {
		d.sendStatus(s.ID, packet.OpJoinRoom, false)
		return
	}

	r, err := d.Rooms.Join(pl, payload.RoomID, payload.IsSpectator != 0)
	if err != nil {
		if errors.Is(err, world.ErrRoomNotFound) || errors.Is(err, world.ErrRoomFull) ||
			errors.Is(err, world.ErrRoomAlreadyInGame) || errors.Is(err, world.ErrSessionBanned) {
			d.Log.Info("加入房間被拒",
				zap.Uint32("session", s.ID),
				zap.Uint32("room", payload.RoomID),
				zap.Error(err),
			)
		}
		d.sendStatus(s.ID, packet.OpJoinRoom, false)
		return
	}

	// The lobby is joined silently; everything else gets the ack.
	if r.Type != world.RoomLobby {
		d.sendStatus(s.ID, packet.OpJoinRoom, true)
	}

	if r.State == world.RoomInGame {
		s.SetState(packet.StateInGame)
		d.Game.ResyncSession(r, s.ID)
	} else if r.Type == world.RoomLobby {
		s.SetState(packet.StateLobby)
	} else {
		s.SetState(packet.StateRoom)
	}
}

// HandleLeaveRoom removes the session from its room, broadcasts the avatar
// death to whoever stays behind, and parks the session back in the lobby.
func (d *Deps) HandleLeaveRoom(sess any, _ *packet.Packet) {
	s := session(sess)
	pl, ok := d.player(s)
	if !ok {
		return
	}

	roomID := pl.RoomID
	entityID := pl.EntityID
	if r, left := d.Rooms.Leave(pl); left {
		d.Game.ReleaseAvatar(r, pl)
		event.Emit(d.Bus, event.PlayerLeftRoom{SessionID: s.ID, RoomID: roomID, EntityID: entityID})
	}

	d.Rooms.JoinLobby(pl)
	s.SetState(packet.StateLobby)
}

// HandleListRooms answers with every non-lobby room.
func (d *Deps) HandleListRooms(sess any, _ *packet.Packet) {
	s := session(sess)
	infos := d.Rooms.ListInfos()

	resp := packet.New(packet.OpRoomList)
	if err := packet.WriteVector(resp, infos); err != nil {
		d.Log.Error("編碼房間列表失敗", zap.Error(err))
		return
	}
	d.Net.Send(s.ID, resp, gonet.ChannelStream)
}

// HandleSetReady records the ready flag; the launch gate reads it next tick.
func (d *Deps) HandleSetReady(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.SetReadyPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	if pl, ok := d.player(s); ok {
		pl.Ready = payload.IsReady != 0
	}
}

// HandleDebugMode fans the owner's debug toggle out to the whole room.
func (d *Deps) HandleDebugMode(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.DebugModePayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}

	pl, ok := d.player(s)
	if !ok || pl.RoomID == 0 {
		return
	}
	r, ok := d.Rooms.Get(pl.RoomID)
	if !ok || r.Owner != s.ID {
		return
	}

	out := packet.New(packet.OpDebugModeUpdate)
	if err := (&packet.DebugModePayload{Enabled: payload.Enabled}).EncodeTo(out); err != nil {
		return
	}
	for _, sid := range r.Members() {
		d.Net.Send(sid, out, gonet.ChannelStream)
	}
}

// HandleInputTick copies the input bitmask into the sender's record; the
// movement system consumes it on the next tick.
func (d *Deps) HandleInputTick(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.InputPayload
	if err := payload.DecodeFrom(p); err != nil {
		return
	}
	if pl, ok := d.player(s); ok {
		pl.InputMask = payload.InputMask
	}
}
