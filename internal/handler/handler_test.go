package handler

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/airtrap/server/internal/auth"
	"github.com/airtrap/server/internal/config"
	"github.com/airtrap/server/internal/core/event"
	gonet "github.com/airtrap/server/internal/net"
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	sent   []sentPacket
	closed []uint32
}

type sentPacket struct {
	SessionID uint32
	Op        packet.OpCode
	Ch        gonet.Channel
	Raw       []byte
}

func (r *recorder) Send(sessionID uint32, p *packet.Packet, ch gonet.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentPacket{SessionID: sessionID, Op: p.Header.Op, Ch: ch, Raw: p.Serialize()})
}

func (r *recorder) CloseSession(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
}

func (r *recorder) ofOp(op packet.OpCode) []sentPacket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentPacket
	for _, sp := range r.sent {
		if sp.Op == op {
			out = append(out, sp)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type fakeGame struct {
	resyncs  []uint32
	released []uint32
}

func (f *fakeGame) ResyncSession(_ *world.Room, sessionID uint32) {
	f.resyncs = append(f.resyncs, sessionID)
}

func (f *fakeGame) ReleaseAvatar(_ *world.Room, p *world.Player) {
	f.released = append(f.released, p.SessionID)
	p.EntityID = 0
}

func newDeps(t *testing.T) (*Deps, *recorder, *fakeGame) {
	t.Helper()
	players := world.NewState()
	rec := &recorder{}
	game := &fakeGame{}
	deps := &Deps{
		Net:     rec,
		Auth:    auth.NewStore(filepath.Join(t.TempDir(), "login.txt"), zap.NewNop()),
		Players: players,
		Rooms:   world.NewRoomManager(players),
		Config:  config.Defaults(),
		Log:     zap.NewNop(),
		Bus:     event.NewBus(),
		Game:    game,
	}
	return deps, rec, game
}

func newSession(t *testing.T, id uint32) *gonet.Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	return gonet.NewSession(server, id, 16, time.Second, zap.NewNop())
}

func loggedIn(t *testing.T, d *Deps, id uint32, name string) (*gonet.Session, *world.Player) {
	t.Helper()
	sess := newSession(t, id)
	pl := world.NewPlayer(sess)
	pl.Username = name
	pl.LoggedIn = true
	d.Players.Add(pl)
	d.Rooms.JoinLobby(pl)
	sess.SetState(packet.StateLobby)
	return sess, pl
}

func request(t *testing.T, op packet.OpCode, payload packet.Encoder) *packet.Packet {
	t.Helper()
	p := packet.New(op)
	if payload != nil {
		require.NoError(t, payload.EncodeTo(p))
	}
	out, err := packet.Deserialize(p.Serialize())
	require.NoError(t, err)
	return out
}

func TestRegisterThenLogin(t *testing.T) {
	d, rec, _ := newDeps(t)
	sess := newSession(t, 1)

	d.HandleRegister(sess, request(t, packet.OpRegisterRequest,
		&packet.LoginPayload{Username: "alice", Password: "pw"}))

	resps := rec.ofOp(packet.OpRegisterResponse)
	require.Len(t, resps, 1)
	p, _ := packet.Deserialize(resps[0].Raw)
	var resp packet.LoginResponsePayload
	require.NoError(t, resp.DecodeFrom(p))
	assert.Equal(t, byte(1), resp.Success)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, packet.StateLobby, sess.State())

	// A second session logs in with the stored credentials.
	rec.reset()
	sess2 := newSession(t, 2)
	d.HandleLogin(sess2, request(t, packet.OpLoginRequest,
		&packet.LoginPayload{Username: "alice", Password: "pw"}))

	logins := rec.ofOp(packet.OpLoginResponse)
	require.Len(t, logins, 1)
	p, _ = packet.Deserialize(logins[0].Raw)
	require.NoError(t, resp.DecodeFrom(p))
	assert.Equal(t, byte(1), resp.Success)

	pl, ok := d.Players.Get(2)
	require.True(t, ok)
	assert.True(t, pl.LoggedIn)
	assert.Equal(t, d.Rooms.LobbyID(), pl.RoomID)
}

func TestLoginFailureKeepsSessionOpen(t *testing.T) {
	d, rec, _ := newDeps(t)
	sess := newSession(t, 1)

	d.HandleLogin(sess, request(t, packet.OpLoginRequest,
		&packet.LoginPayload{Username: "ghost", Password: "x"}))

	resps := rec.ofOp(packet.OpLoginResponse)
	require.Len(t, resps, 1)
	p, _ := packet.Deserialize(resps[0].Raw)
	var resp packet.LoginResponsePayload
	require.NoError(t, resp.DecodeFrom(p))
	assert.Equal(t, byte(0), resp.Success)
	assert.Equal(t, "ghost", resp.Username)
	assert.Empty(t, rec.closed, "auth failure never disconnects")
	assert.Equal(t, packet.StateConnected, sess.State())
}

func TestCreateRoomAckAndJoinFailureStatus(t *testing.T) {
	d, rec, _ := newDeps(t)
	sess, _ := loggedIn(t, d, 1, "alice")

	d.HandleCreateRoom(sess, request(t, packet.OpCreateRoom, &packet.CreateRoomPayload{
		RoomName: "r", MaxPlayers: 2, Difficulty: 1, Speed: 1, LevelID: 1,
	}))
	acks := rec.ofOp(packet.OpCreateRoom)
	require.Len(t, acks, 1)
	p, _ := packet.Deserialize(acks[0].Raw)
	var status packet.BooleanPayload
	require.NoError(t, status.DecodeFrom(p))
	assert.Equal(t, byte(1), status.Status)
	assert.Equal(t, packet.StateRoom, sess.State())

	// Joining a room that does not exist answers status 0.
	rec.reset()
	sess2, _ := loggedIn(t, d, 2, "bob")
	d.HandleJoinRoom(sess2, request(t, packet.OpJoinRoom, &packet.JoinRoomPayload{RoomID: 999}))
	acks = rec.ofOp(packet.OpJoinRoom)
	require.Len(t, acks, 1)
	p, _ = packet.Deserialize(acks[0].Raw)
	require.NoError(t, status.DecodeFrom(p))
	assert.Equal(t, byte(0), status.Status)
}

func TestJoinInGameRoomTriggersResync(t *testing.T) {
	d, rec, game := newDeps(t)
	sess, pl := loggedIn(t, d, 1, "alice")
	_ = sess

	r := d.Rooms.CreateRoom(1, "r", 1, 1, 1, 0, 0, 0)
	d.Rooms.Join(pl, r.ID, false)
	pl.Ready = true
	started := d.Rooms.LaunchReady()
	require.Len(t, started, 1)

	rec.reset()
	specSess, _ := loggedIn(t, d, 2, "carol")
	d.HandleJoinRoom(specSess, request(t, packet.OpJoinRoom,
		&packet.JoinRoomPayload{RoomID: r.ID, IsSpectator: 1}))

	acks := rec.ofOp(packet.OpJoinRoom)
	require.Len(t, acks, 1)
	p, _ := packet.Deserialize(acks[0].Raw)
	var status packet.BooleanPayload
	require.NoError(t, status.DecodeFrom(p))
	assert.Equal(t, byte(1), status.Status)
	assert.Equal(t, []uint32{2}, game.resyncs)
	assert.Equal(t, packet.StateInGame, specSess.State())
}

func TestListRooms(t *testing.T) {
	d, rec, _ := newDeps(t)
	sess, pl := loggedIn(t, d, 1, "alice")
	r := d.Rooms.CreateRoom(1, "visible", 4, 1, 1, 2, 0, 0)
	d.Rooms.Join(pl, r.ID, false)

	d.HandleListRooms(sess, request(t, packet.OpListRooms, nil))

	lists := rec.ofOp(packet.OpRoomList)
	require.Len(t, lists, 1)
	p, _ := packet.Deserialize(lists[0].Raw)
	infos, err := packet.ReadVector[packet.RoomInfo](p)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "visible", infos[0].RoomName)
	assert.Equal(t, uint32(1), infos[0].CurrentPlayers)
}

func TestChatFanOut(t *testing.T) {
	d, rec, _ := newDeps(t)
	sessA, a := loggedIn(t, d, 1, "a")
	_, b := loggedIn(t, d, 2, "b")
	_, c := loggedIn(t, d, 3, "c")
	_, outsider := loggedIn(t, d, 4, "outsider")
	_ = outsider

	r := d.Rooms.CreateRoom(1, "r", 4, 1, 1, 0, 0, 0)
	d.Rooms.Join(a, r.ID, false)
	d.Rooms.Join(b, r.ID, false)
	d.Rooms.Join(c, r.ID, false)
	rec.reset()

	d.HandleRoomChat(sessA, request(t, packet.OpRoomChatSent,
		&packet.RoomChatPayload{Message: "hi"}))

	chats := rec.ofOp(packet.OpRoomChatReceived)
	require.Len(t, chats, 3, "all members including the sender")
	targets := map[uint32]bool{}
	for _, ch := range chats {
		targets[ch.SessionID] = true
		p, _ := packet.Deserialize(ch.Raw)
		var payload packet.RoomChatReceivedPayload
		require.NoError(t, payload.DecodeFrom(p))
		assert.Equal(t, "a", payload.Username)
		assert.Equal(t, "hi", payload.Message)
		assert.Equal(t, uint32(1), payload.SessionID)
	}
	assert.True(t, targets[1] && targets[2] && targets[3])
	assert.False(t, targets[4], "non-members receive nothing")
}

func TestKickCommandBansAndRemoves(t *testing.T) {
	d, rec, game := newDeps(t)
	sessA, a := loggedIn(t, d, 1, "owner")
	_, victim := loggedIn(t, d, 2, "badguy")

	r := d.Rooms.CreateRoom(1, "r", 4, 1, 1, 0, 0, 0)
	d.Rooms.Join(a, r.ID, false)
	d.Rooms.Join(victim, r.ID, false)
	rec.reset()

	d.HandleRoomChat(sessA, request(t, packet.OpRoomChatSent,
		&packet.RoomChatPayload{Message: "/kick badguy"}))

	kicked := rec.ofOp(packet.OpKicked)
	require.Len(t, kicked, 1)
	assert.Equal(t, uint32(2), kicked[0].SessionID)
	assert.Equal(t, []uint32{2}, game.released)

	got, _ := d.Rooms.Get(r.ID)
	assert.Equal(t, []uint32{1}, got.Members())
	assert.True(t, got.IsBanned("badguy"))
	assert.Equal(t, d.Rooms.LobbyID(), victim.RoomID)

	// The banned name cannot rejoin, not even as a spectator.
	_, err := d.Rooms.Join(victim, r.ID, false)
	assert.ErrorIs(t, err, world.ErrSessionBanned)
	_, err = d.Rooms.Join(victim, r.ID, true)
	assert.ErrorIs(t, err, world.ErrSessionBanned)
}

func TestKickIgnoredFromNonOwner(t *testing.T) {
	d, rec, _ := newDeps(t)
	_, a := loggedIn(t, d, 1, "owner")
	sessB, b := loggedIn(t, d, 2, "pretender")

	r := d.Rooms.CreateRoom(1, "r", 4, 1, 1, 0, 0, 0)
	d.Rooms.Join(a, r.ID, false)
	d.Rooms.Join(b, r.ID, false)
	rec.reset()

	d.HandleRoomChat(sessB, request(t, packet.OpRoomChatSent,
		&packet.RoomChatPayload{Message: "/kick owner"}))

	assert.Empty(t, rec.ofOp(packet.OpKicked))
	got, _ := d.Rooms.Get(r.ID)
	assert.Len(t, got.Members(), 2)
}

func TestPingEchoesPayload(t *testing.T) {
	d, rec, _ := newDeps(t)
	sess := newSession(t, 1)

	d.HandlePing(sess, request(t, packet.OpPing, &packet.PingPayload{ClientTimeMs: 4242}))

	pongs := rec.ofOp(packet.OpPong)
	require.Len(t, pongs, 1)
	assert.Equal(t, gonet.ChannelStream, pongs[0].Ch)
	p, _ := packet.Deserialize(pongs[0].Raw)
	var pong packet.PingPayload
	require.NoError(t, pong.DecodeFrom(p))
	assert.Equal(t, uint64(4242), pong.ClientTimeMs)
}

func TestSetReadyAndInput(t *testing.T) {
	d, _, _ := newDeps(t)
	sess, pl := loggedIn(t, d, 1, "alice")

	d.HandleSetReady(sess, request(t, packet.OpSetReady, &packet.SetReadyPayload{IsReady: 1}))
	assert.True(t, pl.Ready)
	d.HandleSetReady(sess, request(t, packet.OpSetReady, &packet.SetReadyPayload{IsReady: 0}))
	assert.False(t, pl.Ready)

	d.HandleInputTick(sess, request(t, packet.OpInputTick, &packet.InputPayload{InputMask: world.InputRight | world.InputFire}))
	assert.Equal(t, world.InputRight|world.InputFire, pl.InputMask)
}
