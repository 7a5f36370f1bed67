package packet

// Vec2 is the wire representation of a 2D float vector.
type Vec2 struct {
	X float32
	Y float32
}

func (v *Vec2) EncodeTo(p *Packet) error {
	if err := p.WriteF32(v.X); err != nil {
		return err
	}
	return p.WriteF32(v.Y)
}

func (v *Vec2) DecodeFrom(p *Packet) error {
	var err error
	if v.X, err = p.ReadF32(); err != nil {
		return err
	}
	v.Y, err = p.ReadF32()
	return err
}

// EntityType tags network-visible entities in spawn/death payloads.
type EntityType byte

const (
	EntityNone        EntityType = 0
	EntityPlayer      EntityType = 1
	EntityEnemy       EntityType = 2
	EntityBullet      EntityType = 3
	EntityEnemyBullet EntityType = 4
)

// Fixed char[] field widths shared by several payloads.
const (
	usernameFieldSize = 32
	passwordFieldSize = 32
	roomNameFieldSize = 64
	messageFieldSize  = 256
)

// ConnectPayload rides the Welcome packet so the client learns its session ID.
type ConnectPayload struct {
	SessionID uint32
}

func (c *ConnectPayload) EncodeTo(p *Packet) error { return p.WriteU32(c.SessionID) }

func (c *ConnectPayload) DecodeFrom(p *Packet) error {
	var err error
	c.SessionID, err = p.ReadU32()
	return err
}

// BooleanPayload is the one-byte status body used by the room acks.
type BooleanPayload struct {
	Status byte
}

func (b *BooleanPayload) EncodeTo(p *Packet) error { return p.WriteU8(b.Status) }

func (b *BooleanPayload) DecodeFrom(p *Packet) error {
	var err error
	b.Status, err = p.ReadU8()
	return err
}

// LoginPayload carries credentials for both LoginRequest and RegisterRequest.
type LoginPayload struct {
	Username string
	Password string
}

func (l *LoginPayload) EncodeTo(p *Packet) error {
	if err := p.WriteFixedString(l.Username, usernameFieldSize); err != nil {
		return err
	}
	return p.WriteFixedString(l.Password, passwordFieldSize)
}

func (l *LoginPayload) DecodeFrom(p *Packet) error {
	var err error
	if l.Username, err = p.ReadFixedString(usernameFieldSize); err != nil {
		return err
	}
	l.Password, err = p.ReadFixedString(passwordFieldSize)
	return err
}

// LoginResponsePayload answers both LoginRequest and RegisterRequest.
type LoginResponsePayload struct {
	Success  byte
	Username string
}

func (l *LoginResponsePayload) EncodeTo(p *Packet) error {
	if err := p.WriteU8(l.Success); err != nil {
		return err
	}
	return p.WriteFixedString(l.Username, usernameFieldSize)
}

func (l *LoginResponsePayload) DecodeFrom(p *Packet) error {
	var err error
	if l.Success, err = p.ReadU8(); err != nil {
		return err
	}
	l.Username, err = p.ReadFixedString(usernameFieldSize)
	return err
}

type CreateRoomPayload struct {
	RoomName   string
	MaxPlayers uint32
	Difficulty float32
	Speed      float32
	LevelID    uint32
	Seed       uint32
	Duration   uint32
}

func (c *CreateRoomPayload) EncodeTo(p *Packet) error {
	if err := p.WriteFixedString(c.RoomName, roomNameFieldSize); err != nil {
		return err
	}
	if err := p.WriteU32(c.MaxPlayers); err != nil {
		return err
	}
	if err := p.WriteF32(c.Difficulty); err != nil {
		return err
	}
	if err := p.WriteF32(c.Speed); err != nil {
		return err
	}
	if err := p.WriteU32(c.LevelID); err != nil {
		return err
	}
	if err := p.WriteU32(c.Seed); err != nil {
		return err
	}
	return p.WriteU32(c.Duration)
}

func (c *CreateRoomPayload) DecodeFrom(p *Packet) error {
	var err error
	if c.RoomName, err = p.ReadFixedString(roomNameFieldSize); err != nil {
		return err
	}
	if c.MaxPlayers, err = p.ReadU32(); err != nil {
		return err
	}
	if c.Difficulty, err = p.ReadF32(); err != nil {
		return err
	}
	if c.Speed, err = p.ReadF32(); err != nil {
		return err
	}
	if c.LevelID, err = p.ReadU32(); err != nil {
		return err
	}
	if c.Seed, err = p.ReadU32(); err != nil {
		return err
	}
	c.Duration, err = p.ReadU32()
	return err
}

type JoinRoomPayload struct {
	RoomID      uint32
	IsSpectator byte
}

func (j *JoinRoomPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(j.RoomID); err != nil {
		return err
	}
	return p.WriteU8(j.IsSpectator)
}

func (j *JoinRoomPayload) DecodeFrom(p *Packet) error {
	var err error
	if j.RoomID, err = p.ReadU32(); err != nil {
		return err
	}
	j.IsSpectator, err = p.ReadU8()
	return err
}

type SetReadyPayload struct {
	IsReady byte
}

func (s *SetReadyPayload) EncodeTo(p *Packet) error { return p.WriteU8(s.IsReady) }

func (s *SetReadyPayload) DecodeFrom(p *Packet) error {
	var err error
	s.IsReady, err = p.ReadU8()
	return err
}

type RoomChatPayload struct {
	Message string
}

func (r *RoomChatPayload) EncodeTo(p *Packet) error {
	return p.WriteFixedString(r.Message, messageFieldSize)
}

func (r *RoomChatPayload) DecodeFrom(p *Packet) error {
	var err error
	r.Message, err = p.ReadFixedString(messageFieldSize)
	return err
}

type RoomChatReceivedPayload struct {
	SessionID uint32
	Username  string
	Message   string
}

func (r *RoomChatReceivedPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(r.SessionID); err != nil {
		return err
	}
	if err := p.WriteFixedString(r.Username, usernameFieldSize); err != nil {
		return err
	}
	return p.WriteFixedString(r.Message, messageFieldSize)
}

func (r *RoomChatReceivedPayload) DecodeFrom(p *Packet) error {
	var err error
	if r.SessionID, err = p.ReadU32(); err != nil {
		return err
	}
	if r.Username, err = p.ReadFixedString(usernameFieldSize); err != nil {
		return err
	}
	r.Message, err = p.ReadFixedString(messageFieldSize)
	return err
}

type InputPayload struct {
	InputMask byte
}

func (i *InputPayload) EncodeTo(p *Packet) error { return p.WriteU8(i.InputMask) }

func (i *InputPayload) DecodeFrom(p *Packet) error {
	var err error
	i.InputMask, err = p.ReadU8()
	return err
}

type EntitySpawnPayload struct {
	NetID uint32
	Type  EntityType
	PosX  float32
	PosY  float32
	SizeX float32
	SizeY float32
}

func (e *EntitySpawnPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(e.NetID); err != nil {
		return err
	}
	if err := p.WriteU8(byte(e.Type)); err != nil {
		return err
	}
	if err := p.WriteF32(e.PosX); err != nil {
		return err
	}
	if err := p.WriteF32(e.PosY); err != nil {
		return err
	}
	if err := p.WriteF32(e.SizeX); err != nil {
		return err
	}
	return p.WriteF32(e.SizeY)
}

func (e *EntitySpawnPayload) DecodeFrom(p *Packet) error {
	v, err := p.ReadU32()
	if err != nil {
		return err
	}
	e.NetID = v
	t, err := p.ReadU8()
	if err != nil {
		return err
	}
	e.Type = EntityType(t)
	if e.PosX, err = p.ReadF32(); err != nil {
		return err
	}
	if e.PosY, err = p.ReadF32(); err != nil {
		return err
	}
	if e.SizeX, err = p.ReadF32(); err != nil {
		return err
	}
	e.SizeY, err = p.ReadF32()
	return err
}

type EntityDeathPayload struct {
	NetID    uint32
	Type     EntityType
	Position Vec2
}

func (e *EntityDeathPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(e.NetID); err != nil {
		return err
	}
	if err := p.WriteU8(byte(e.Type)); err != nil {
		return err
	}
	return e.Position.EncodeTo(p)
}

func (e *EntityDeathPayload) DecodeFrom(p *Packet) error {
	v, err := p.ReadU32()
	if err != nil {
		return err
	}
	e.NetID = v
	t, err := p.ReadU8()
	if err != nil {
		return err
	}
	e.Type = EntityType(t)
	return e.Position.DecodeFrom(p)
}

// RoomSnapshotPayload heads every RoomUpdate body, followed by a vector of
// EntitySnapshotPayload.
type RoomSnapshotPayload struct {
	RoomID         uint32
	CurrentPlayers uint32
	ServerTick     uint32
	EntityCount    uint16
	InGame         byte
}

func (r *RoomSnapshotPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(r.RoomID); err != nil {
		return err
	}
	if err := p.WriteU32(r.CurrentPlayers); err != nil {
		return err
	}
	if err := p.WriteU32(r.ServerTick); err != nil {
		return err
	}
	if err := p.WriteU16(r.EntityCount); err != nil {
		return err
	}
	return p.WriteU8(r.InGame)
}

func (r *RoomSnapshotPayload) DecodeFrom(p *Packet) error {
	var err error
	if r.RoomID, err = p.ReadU32(); err != nil {
		return err
	}
	if r.CurrentPlayers, err = p.ReadU32(); err != nil {
		return err
	}
	if r.ServerTick, err = p.ReadU32(); err != nil {
		return err
	}
	if r.EntityCount, err = p.ReadU16(); err != nil {
		return err
	}
	r.InGame, err = p.ReadU8()
	return err
}

type EntitySnapshotPayload struct {
	NetID    uint32
	Position Vec2
	Velocity Vec2
	Rotation float32
}

func (e *EntitySnapshotPayload) EncodeTo(p *Packet) error {
	if err := p.WriteU32(e.NetID); err != nil {
		return err
	}
	if err := e.Position.EncodeTo(p); err != nil {
		return err
	}
	if err := e.Velocity.EncodeTo(p); err != nil {
		return err
	}
	return p.WriteF32(e.Rotation)
}

func (e *EntitySnapshotPayload) DecodeFrom(p *Packet) error {
	var err error
	if e.NetID, err = p.ReadU32(); err != nil {
		return err
	}
	if err = e.Position.DecodeFrom(p); err != nil {
		return err
	}
	if err = e.Velocity.DecodeFrom(p); err != nil {
		return err
	}
	e.Rotation, err = p.ReadF32()
	return err
}

// RoomInfo is one entry of the RoomList response vector.
type RoomInfo struct {
	RoomID         uint32
	RoomName       string
	CurrentPlayers uint32
	MaxPlayers     uint32
	InGame         byte
	Difficulty     float32
	Speed          float32
	Duration       uint32
	Seed           uint32
	LevelID        uint32
}

func (r *RoomInfo) EncodeTo(p *Packet) error {
	if err := p.WriteU32(r.RoomID); err != nil {
		return err
	}
	if err := p.WriteFixedString(r.RoomName, roomNameFieldSize); err != nil {
		return err
	}
	if err := p.WriteU32(r.CurrentPlayers); err != nil {
		return err
	}
	if err := p.WriteU32(r.MaxPlayers); err != nil {
		return err
	}
	if err := p.WriteU8(r.InGame); err != nil {
		return err
	}
	if err := p.WriteF32(r.Difficulty); err != nil {
		return err
	}
	if err := p.WriteF32(r.Speed); err != nil {
		return err
	}
	if err := p.WriteU32(r.Duration); err != nil {
		return err
	}
	if err := p.WriteU32(r.Seed); err != nil {
		return err
	}
	return p.WriteU32(r.LevelID)
}

func (r *RoomInfo) DecodeFrom(p *Packet) error {
	var err error
	if r.RoomID, err = p.ReadU32(); err != nil {
		return err
	}
	if r.RoomName, err = p.ReadFixedString(roomNameFieldSize); err != nil {
		return err
	}
	if r.CurrentPlayers, err = p.ReadU32(); err != nil {
		return err
	}
	if r.MaxPlayers, err = p.ReadU32(); err != nil {
		return err
	}
	if r.InGame, err = p.ReadU8(); err != nil {
		return err
	}
	if r.Difficulty, err = p.ReadF32(); err != nil {
		return err
	}
	if r.Speed, err = p.ReadF32(); err != nil {
		return err
	}
	if r.Duration, err = p.ReadU32(); err != nil {
		return err
	}
	if r.Seed, err = p.ReadU32(); err != nil {
		return err
	}
	r.LevelID, err = p.ReadU32()
	return err
}

type PingPayload struct {
	ClientTimeMs uint64
}

func (pp *PingPayload) EncodeTo(p *Packet) error { return p.WriteU64(pp.ClientTimeMs) }

func (pp *PingPayload) DecodeFrom(p *Packet) error {
	var err error
	pp.ClientTimeMs, err = p.ReadU64()
	return err
}

type AmmoUpdatePayload struct {
	Current           uint16
	Max               uint16
	IsReloading       byte
	CooldownRemaining float32
}

func (a *AmmoUpdatePayload) EncodeTo(p *Packet) error {
	if err := p.WriteU16(a.Current); err != nil {
		return err
	}
	if err := p.WriteU16(a.Max); err != nil {
		return err
	}
	if err := p.WriteU8(a.IsReloading); err != nil {
		return err
	}
	return p.WriteF32(a.CooldownRemaining)
}

func (a *AmmoUpdatePayload) DecodeFrom(p *Packet) error {
	var err error
	if a.Current, err = p.ReadU16(); err != nil {
		return err
	}
	if a.Max, err = p.ReadU16(); err != nil {
		return err
	}
	if a.IsReloading, err = p.ReadU8(); err != nil {
		return err
	}
	a.CooldownRemaining, err = p.ReadF32()
	return err
}

type DebugModePayload struct {
	Enabled byte
}

func (d *DebugModePayload) EncodeTo(p *Packet) error { return p.WriteU8(d.Enabled) }

func (d *DebugModePayload) DecodeFrom(p *Packet) error {
	var err error
	d.Enabled, err = p.ReadU8()
	return err
}
