// Package wire implements the relay's tagged binary framing.
//
// Every unit on a connection, control or payload, is a frame:
//
//	1 byte:  type
//	4 bytes: payload length (big endian)
//	N bytes: payload
//
// An audio frame is therefore the AudioFrame layout (length prefix +
// ciphertext) behind a TypeAudio tag, and payload bytes are never inspected
// to decide what a frame is.
package wire

type Type uint8

const (
	TypeCommand   Type = 1
	TypePrompt    Type = 2
	TypeNotice    Type = 3
	TypeChat      Type = 4
	TypePrivate   Type = 5
	TypeError     Type = 6
	TypeFileStart Type = 7
	TypeFileChunk Type = 8
	TypeFileEnd   Type = 9
	TypeAudio     Type = 10

	maxType = TypeAudio
)

func (t Type) String() string {
	switch t {
	case TypeCommand:
		return "COMMAND"
	case TypePrompt:
		return "PROMPT"
	case TypeNotice:
		return "NOTICE"
	case TypeChat:
		return "CHAT"
	case TypePrivate:
		return "PRIVATE"
	case TypeError:
		return "ERROR"
	case TypeFileStart:
		return "FILE_START"
	case TypeFileChunk:
		return "FILE_CHUNK"
	case TypeFileEnd:
		return "FILE_END"
	case TypeAudio:
		return "AUDIO"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is a known frame type.
func (t Type) Valid() bool { return t >= TypeCommand && t <= maxType }

// Text reports whether the frame payload is a text payload.
func (t Type) Text() bool {
	switch t {
	case TypeCommand, TypePrompt, TypeNotice, TypeChat, TypePrivate, TypeError:
		return true
	}
	return false
}
