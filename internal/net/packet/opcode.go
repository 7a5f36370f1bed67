package packet

// OpCode identifies the packet type carried in the header.
type OpCode byte

const (
	OpNone OpCode = 0x00

	// Connection management
	OpHello      OpCode = 0x01
	OpWelcome    OpCode = 0x02
	OpDisconnect OpCode = 0x03

	// Room management
	OpListRooms        OpCode = 0x04
	OpRoomList         OpCode = 0x05
	OpCreateRoom       OpCode = 0x06
	OpJoinRoom         OpCode = 0x07
	OpLeaveRoom        OpCode = 0x08
	OpRoomUpdate       OpCode = 0x09
	OpSetReady         OpCode = 0x0A
	OpRoomChatSent     OpCode = 0x0B
	OpRoomChatReceived OpCode = 0x0C
	OpStartGame        OpCode = 0x0D

	// Game state (client -> server)
	OpInputTick OpCode = 0x10

	// Authentication
	OpLoginRequest    OpCode = 0x1A
	OpRegisterRequest OpCode = 0x1B

	// Gameplay (server -> client)
	OpEntitySpawn     OpCode = 0x21
	OpEntityDeath     OpCode = 0x22
	OpAmmoUpdate      OpCode = 0x23
	OpPing            OpCode = 0x24
	OpPong            OpCode = 0x25
	OpDebugModeUpdate OpCode = 0x26
	OpKicked          OpCode = 0x27

	// Authentication responses
	OpLoginResponse    OpCode = 0x9A
	OpRegisterResponse OpCode = 0x9B
)

func (op OpCode) String() string {
	switch op {
	case OpHello:
		return "Hello"
	case OpWelcome:
		return "Welcome"
	case OpDisconnect:
		return "Disconnect"
	case OpListRooms:
		return "ListRooms"
	case OpRoomList:
		return "RoomList"
	case OpCreateRoom:
		return "CreateRoom"
	case OpJoinRoom:
		return "JoinRoom"
	case OpLeaveRoom:
		return "LeaveRoom"
	case OpRoomUpdate:
		return "RoomUpdate"
	case OpSetReady:
		return "SetReady"
	case OpRoomChatSent:
		return "RoomChatSent"
	case OpRoomChatReceived:
		return "RoomChatReceived"
	case OpStartGame:
		return "StartGame"
	case OpInputTick:
		return "InputTick"
	case OpLoginRequest:
		return "LoginRequest"
	case OpRegisterRequest:
		return "RegisterRequest"
	case OpEntitySpawn:
		return "EntitySpawn"
	case OpEntityDeath:
		return "EntityDeath"
	case OpAmmoUpdate:
		return "AmmoUpdate"
	case OpPing:
		return "Ping"
	case OpPong:
		return "Pong"
	case OpDebugModeUpdate:
		return "DebugModeUpdate"
	case OpKicked:
		return "Kicked"
	case OpLoginResponse:
		return "LoginResponse"
	case OpRegisterResponse:
		return "RegisterResponse"
	}
	return "Unknown"
}
