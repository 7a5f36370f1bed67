package handler

import (
	"errors"

	"github.com/airtrap/server/internal/auth"
	"github.com/airtrap/server/internal/core/event"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"go.uber.org/zap"
)

// HandleHello logs the client's first packet. The Welcome with the assigned
// session ID already went out when the connect event was drained.
func (d *Deps) HandleHello(sess any, _ *packet.Packet) {
	s := session(sess)
	d.Log.Info("客戶端握手", zap.Uint32("session", s.ID))
}

// HandleDisconnect is the voluntary goodbye: just cut the stream and let
// the normal disconnect path clean up.
func (d *Deps) HandleDisconnect(sess any, _ *packet.Packet) {
	session(sess).Close()
}

// HandlePing echoes the payload back as Pong on the reliable channel; the
// client computes RTT against its own timestamp.
func (d *Deps) HandlePing(sess any, p *packet.Packet) {
	s := session(sess)
	var payload packet.PingPayload
	if err := payload.DecodeFrom(p); err != nil {
		d.Log.Debug("Ping 格式錯誤", zap.Uint32("session", s.ID), zap.Error(err))
		return
	}
	pong := packet.New(packet.OpPong)
	if err := (&packet.PingPayload{ClientTimeMs: payload.ClientTimeMs}).EncodeTo(pong); err != nil {
		return
	}
	d.Net.Send(s.ID, pong, gonet.ChannelStream)
}

// HandleLogin checks the credentials against the flat file. Success creates
// the game-side player record and parks it in the lobby; failure is a
// protocol-level response, never a disconnect.
func (d *Deps) HandleLogin(sess any, p *packet.Packet) {
	d.handleCredentials(session(sess), p, packet.OpLoginResponse, d.Auth.Login)
}

// HandleRegister appends a credential record, then logs the session in.
func (d *Deps) HandleRegister(sess any, p *packet.Packet) {
	d.handleCredentials(session(sess), p, packet.OpRegisterResponse, d.Auth.Register)
}

func (d *Deps) handleCredentials(s *gonet.Session, p *packet.Packet, respOp packet.OpCode, check func(username, password string) error) {
	var payload packet.LoginPayload
	if err := payload.DecodeFrom(p); err != nil {
		d.Log.Debug("認證封包格式錯誤", zap.Uint32("session", s.ID), zap.Error(err))
		return
	}

	err := check(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailed) || errors.Is(err, auth.ErrUserExists) ||
			errors.Is(err, auth.ErrInvalidCredential) {
			d.Log.Info("認證失敗",
				zap.Uint32("session", s.ID),
				zap.String("username", payload.Username),
				zap.Error(err),
			)
		} else {
			d.Log.Error("認證存取錯誤", zap.Error(err))
		}
		d.sendAuthResponse(s.ID, respOp, false, payload.Username)
		return
	}

	d.Log.Info("登入成功",
		zap.Uint32("session", s.ID),
		zap.String("username", payload.Username),
	)

	p2, ok := d.player(s)
	if !ok {
		p2 = world.NewPlayer(s)
		d.Players.Add(p2)
	}
	p2.Username = payload.Username
	p2.LoggedIn = true
	d.Rooms.JoinLobby(p2)
	s.SetState(packet.StateLobby)

	d.sendAuthResponse(s.ID, respOp, true, payload.Username)
	event.Emit(d.Bus, event.PlayerLoggedIn{SessionID: s.ID, Username: payload.Username})
}

func (d *Deps) sendAuthResponse(sessionID uint32, op packet.OpCode, success bool, username string) {
	flag := byte(0)
	if success {
		flag = 1
	}
	resp := packet.New(op)
	if err := (&packet.LoginResponsePayload{Success: flag, Username: username}).EncodeTo(resp); err != nil {
		d.Log.Error("編碼認證回應失敗", zap.Error(err))
		return
	}
	d.Net.Send(sessionID, resp, gonet.ChannelStream)
}
