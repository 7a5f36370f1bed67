package handler

import (
	"strings"

	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// HandleRoomChat fans a chat line out to every member of the sender's room,
// sender included. Lines starting with '/' are room-owner commands and are
// not broadcast.
func (d *Deps) HandleRoomChat(sess any, p *packet.Packet) {
	s := session(sess)
	pl, ok := d.player(s)
	if !ok || pl.RoomID == 0 {
		return
	}

	var payload packet.RoomChatPayload
	if err := payload.DecodeFrom(p); err != nil {
		d.Log.Debug("聊天封包格式錯誤", zap.Uint32("session", s.ID), zap.Error(err))
		return
	}

	r, ok := d.Rooms.Get(pl.RoomID)
	if !ok {
		return
	}

	if strings.HasPrefix(payload.Message, "/") {
		d.handleChatCommand(s, pl, r, payload.Message)
		return
	}

	out := packet.New(packet.OpRoomChatReceived)
	if err := (&packet.RoomChatReceivedPayload{
		SessionID: s.ID,
		Username:  pl.Username,
		Message:   payload.Message,
	}).EncodeTo(out); err != nil {
		return
	}
	for _, sid := range r.Members() {
		d.Net.Send(sid, out, gonet.ChannelStream)
	}
}

// handleChatCommand runs owner commands: /kick <name>, /ban <name>,
// /unban <name>. Kick also bans, so the victim cannot immediately rejoin.
func (d *Deps) handleChatCommand(s *gonet.Session, pl *world.Player, r *world.Room, line string) {
	if r.Owner != s.ID || r.Type == world.RoomLobby {
		return
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "kick":
		if arg == "" || arg == pl.Username {
			return
		}
		d.kickByUsername(r, arg)
	case "ban":
		if arg == "" || arg == pl.Username {
			return
		}
		d.Rooms.Ban(r.ID, arg)
		d.kickByUsername(r, arg)
	case "unban":
		if arg != "" {
			d.Rooms.Unban(r.ID, arg)
		}
	default:
		d.Log.Debug("未知聊天指令", zap.String("cmd", cmd), zap.Uint32("session", s.ID))
	}
}

// kickByUsername removes a member, bans the name, tells the victim, and
// broadcasts the avatar death to the remaining members.
func (d *Deps) kickByUsername(r *world.Room, username string) {
	var victim *world.Player
	for _, sid := range r.Members() {
		if p, ok := d.Players.Get(sid); ok && p.Username == username {
			victim = p
			break
		}
	}
	if victim == nil {
		return
	}

	d.Rooms.Ban(r.ID, username)
	d.Net.Send(victim.SessionID, packet.New(packet.OpKicked), gonet.ChannelStream)

	if left, ok := d.Rooms.Leave(victim); ok {
		d.Game.ReleaseAvatar(left, victim)
	}
	d.Rooms.JoinLobby(victim)
	victim.Session.SetState(packet.StateLobby)

	d.Log.Info("玩家被踢出房間",
		zap.Uint32("room", r.ID),
		zap.String("username", username),
	)
}
