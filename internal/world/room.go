package world

import (
	"github.com/airtrap/server/internal/net/packet"
	"github.com/airtrap/server/internal/scripting"
)

// RoomType distinguishes the permanent lobby from player-created rooms.
type RoomType int

const (
	RoomLobby RoomType = iota
	RoomPublic
)

// RoomState is the room lifecycle: Waiting until the ready gate opens, then
// InGame until the room empties. The lobby never leaves Waiting.
type RoomState int

const (
	RoomWaiting RoomState = iota
	RoomInGame
)

// lobbyCapacity is effectively unbounded.
const lobbyCapacity = 9999

// Room groups sessions sharing one simulation. All mutation goes through
// the RoomManager, under its mutex.
type Room struct {
	ID         uint32
	Name       string
	MaxPlayers uint32
	Difficulty float32
	Speed      float32
	Duration   uint32
	Seed       uint32
	LevelID    uint32
	Owner      uint32
	Type       RoomType
	State      RoomState

	members []uint32
	banned  map[string]struct{}

	// Per-room simulation state, created when the room starts.
	World    *GameWorld
	Elapsed  float64
	Waves    []scripting.SpawnEvent
	NextWave int
	FieldW   float32
	FieldH   float32
}

func newRoom(id uint32, name string, maxPlayers uint32, difficulty, speed float32, duration, seed, levelID uint32) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		MaxPlayers: maxPlayers,
		Difficulty: difficulty,
		Speed:      speed,
		Duration:   duration,
		Seed:       seed,
		LevelID:    levelID,
		Type:       RoomPublic,
		State:      RoomWaiting,
		members:    make([]uint32, 0, 8),
		banned:     make(map[string]struct{}),
	}
}

func (r *Room) InGame() bool { return r.State == RoomInGame }

func (r *Room) capacity() uint32 {
	if r.Type == RoomLobby {
		return lobbyCapacity
	}
	return r.MaxPlayers
}

func (r *Room) canJoin() bool {
	return uint32(len(r.members)) < r.capacity()
}

func (r *Room) addMember(sessionID uint32) bool {
	if r.hasMember(sessionID) {
		return false
	}
	r.members = append(r.members, sessionID)
	return true
}

func (r *Room) removeMember(sessionID uint32) bool {
	for i, id := range r.members {
		if id == sessionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) hasMember(sessionID uint32) bool {
	for _, id := range r.members {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Members returns a copy of the ordered member list, safe to hold outside
// the manager's lock.
func (r *Room) Members() []uint32 {
	out := make([]uint32, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) MemberCount() int { return len(r.members) }

func (r *Room) IsBanned(username string) bool {
	_, ok := r.banned[username]
	return ok
}

func (r *Room) ban(username string)   { r.banned[username] = struct{}{} }
func (r *Room) unban(username string) { delete(r.banned, username) }

// ToInfo flattens the room into its RoomList wire entry.
func (r *Room) ToInfo() packet.RoomInfo {
	inGame := byte(0)
	if r.State == RoomInGame {
		inGame = 1
	}
	return packet.RoomInfo{
		RoomID:         r.ID,
		RoomName:       r.Name,
		CurrentPlayers: uint32(len(r.members)),
		MaxPlayers:     r.MaxPlayers,
		InGame:         inGame,
		Difficulty:     r.Difficulty,
		Speed:          r.Speed,
		Duration:       r.Duration,
		Seed:           r.Seed,
		LevelID:        r.LevelID,
	}
}
