package world

import (
	"errors"
	"sort"
	"sync"

	"github.com/airtrap/server/internal/net/packet"
)

var (
	ErrRoomNotFound      = errors.New("world: room not found")
	ErrRoomFull          = errors.New("world: room is full")
	ErrRoomAlreadyInGame = errors.New("world: room already in game")
	ErrSessionBanned     = errors.New("world: username banned from room")
)

// RoomManager owns every room including the permanent lobby. One mutex
// guards the whole table; operations are map lookups and small list edits.
type RoomManager struct {
	mu         sync.Mutex
	rooms      map[uint32]*Room
	nextRoomID uint32
	lobbyID    uint32
	players    *State
}

func NewRoomManager(players *State) *RoomManager {
	m := &RoomManager{
		rooms:   make(map[uint32]*Room, 16),
		players: players,
	}
	m.nextRoomID = 1
	lobby := newRoom(m.nextRoomID, "Global Lobby", 0, 0, 0, 0, 0, 0)
	lobby.Type = RoomLobby
	m.lobbyID = lobby.ID
	m.rooms[lobby.ID] = lobby
	m.nextRoomID++
	return m
}

func (m *RoomManager) LobbyID() uint32 { return m.lobbyID }

// CreateRoom registers a fresh public room in Waiting state.
func (m *RoomManager) CreateRoom(owner uint32, name string, maxPlayers uint32, difficulty, speed float32, levelID, seed, duration uint32) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := newRoom(m.nextRoomID, name, maxPlayers, difficulty, speed, duration, seed, levelID)
	r.Owner = owner
	m.rooms[r.ID] = r
	m.nextRoomID++
	return r
}

// Join moves the player into the target room, leaving any previous room
// first. Ready is forced on when joining mid-game or as spectator. The ban
// check does not apply to the lobby.
func (m *RoomManager) Join(p *Player, roomID uint32, asSpectator bool) (*Room, error) {
	m.leave(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Type != RoomLobby && r.IsBanned(p.Username) {
		return nil, ErrSessionBanned
	}
	if !asSpectator && r.State == RoomInGame {
		return nil, ErrRoomAlreadyInGame
	}
	if !asSpectator && !r.canJoin() {
		return nil, ErrRoomFull
	}

	r.addMember(p.SessionID)
	p.RoomID = r.ID
	p.Spectator = asSpectator
	p.Ready = r.State == RoomInGame || asSpectator
	return r, nil
}

// JoinLobby parks the player in the permanent lobby.
func (m *RoomManager) JoinLobby(p *Player) {
	m.Join(p, m.lobbyID, false)
}

// Leave removes the player from its current room. An emptied public room is
// destroyed. Returns the room that was left, if any.
func (m *RoomManager) Leave(p *Player) (*Room, bool) {
	return m.leave(p)
}

func (m *RoomManager) leave(p *Player) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.RoomID == 0 {
		return nil, false
	}
	r, ok := m.rooms[p.RoomID]
	if !ok {
		p.RoomID = 0
		return nil, false
	}
	r.removeMember(p.SessionID)
	if r.Type != RoomLobby && r.MemberCount() == 0 {
		delete(m.rooms, r.ID)
	}
	p.RoomID = 0
	p.Ready = false
	p.Spectator = false
	return r, true
}

func (m *RoomManager) Get(roomID uint32) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// Rooms returns a snapshot sorted by ID for deterministic iteration.
func (m *RoomManager) Rooms() []*Room {
	m.mu.Lock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LaunchReady flips every public Waiting room whose members are all ready
// (and at least one member) to InGame, returning the started rooms so the
// simulation can spawn avatars and broadcast StartGame.
func (m *RoomManager) LaunchReady() []*Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	var started []*Room
	for _, r := range m.rooms {
		if r.Type == RoomLobby || r.State != RoomWaiting || r.MemberCount() == 0 {
			continue
		}
		allReady := true
		for _, sid := range r.members {
			p, ok := m.players.Get(sid)
			if !ok || !p.Ready {
				allReady = false
				break
			}
		}
		if allReady {
			r.State = RoomInGame
			started = append(started, r)
		}
	}
	sort.Slice(started, func(i, j int) bool { return started[i].ID < started[j].ID })
	return started
}

// Ban adds the username to the room's ban set.
func (m *RoomManager) Ban(roomID uint32, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.ban(username)
	return nil
}

// Unban removes the username from the room's ban set.
func (m *RoomManager) Unban(roomID uint32, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	r.unban(username)
	return nil
}

// ListInfos enumerates all non-lobby rooms for the RoomList response,
// sorted by room ID.
func (m *RoomManager) ListInfos() []packet.RoomInfo {
	m.mu.Lock()
	infos := make([]packet.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.Type == RoomLobby {
			continue
		}
		infos = append(infos, r.ToInfo())
	}
	m.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].RoomID < infos[j].RoomID })
	return infos
}
