package client

import (
	"time"

	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"go.uber.org/zap"
)

// Outbound requests. Everything except snapshots and the startup probe
// travels on the reliable channel.

func (s *Sync) send(p *packet.Packet, ch gonet.Channel) {
	p.Header.SessionID = s.sessionID
	if err := s.net.Send(p, ch); err != nil {
		s.log.Debug("發送失敗", zap.String("op", p.Header.Op.String()), zap.Error(err))
	}
}

func (s *Sync) sendPing(ch gonet.Channel) {
	p := packet.New(packet.OpPing)
	if err := (&packet.PingPayload{
		ClientTimeMs: uint64(time.Now().UnixMilli()),
	}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, ch)
}

func (s *Sync) TryLogin(username, password string) {
	p := packet.New(packet.OpLoginRequest)
	if err := (&packet.LoginPayload{Username: username, Password: password}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

func (s *Sync) TryRegister(username, password string) {
	p := packet.New(packet.OpRegisterRequest)
	if err := (&packet.LoginPayload{Username: username, Password: password}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

func (s *Sync) RequestRoomList() {
	s.send(packet.New(packet.OpListRooms), gonet.ChannelStream)
}

func (s *Sync) TryCreateRoom(name string, maxPlayers uint32, difficulty, speed float32, levelID, seed, duration uint32) {
	p := packet.New(packet.OpCreateRoom)
	if err := (&packet.CreateRoomPayload{
		RoomName:   name,
		MaxPlayers: maxPlayers,
		Difficulty: difficulty,
		Speed:      speed,
		LevelID:    levelID,
		Seed:       seed,
		Duration:   duration,
	}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

func (s *Sync) TryJoinRoom(roomID uint32, asSpectator bool) {
	spec := byte(0)
	if asSpectator {
		spec = 1
	}
	p := packet.New(packet.OpJoinRoom)
	if err := (&packet.JoinRoomPayload{RoomID: roomID, IsSpectator: spec}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

func (s *Sync) TryLeaveRoom() {
	s.send(packet.New(packet.OpLeaveRoom), gonet.ChannelStream)
	s.state = StateInLobby
	s.resetMirror()
}

func (s *Sync) TrySetReady(ready bool) {
	flag := byte(0)
	if ready {
		flag = 1
	}
	p := packet.New(packet.OpSetReady)
	if err := (&packet.SetReadyPayload{IsReady: flag}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

func (s *Sync) SendChat(message string) {
	p := packet.New(packet.OpRoomChatSent)
	if err := (&packet.RoomChatPayload{Message: message}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}

// SendInput ships the current input bitmask. Called every client tick while
// in game.
func (s *Sync) SendInput(mask byte) {
	p := packet.New(packet.OpInputTick)
	if err := (&packet.InputPayload{InputMask: mask}).EncodeTo(p); err != nil {
		return
	}
	s.send(p, gonet.ChannelStream)
}
