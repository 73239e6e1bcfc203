package checkin

import "encoding/binary"

// Check-In messages are sent unsecured under the Secure Channel protocol.
const (
	// ProtocolID is the Secure Channel protocol identifier.
	ProtocolID uint16 = 0x0000

	// OpcodeICDCheckIn is the Secure Channel opcode of the Check-In message.
	OpcodeICDCheckIn uint8 = 0x50
)

// ActiveModeThresholdSize is the size of the ActiveModeThreshold field an
// ICD places at the start of its Check-In application data.
const ActiveModeThresholdSize = 2

// Message is an opened Check-In message.
type Message struct {
	Counter uint32
	AppData []byte
}

// Seal encodes m into a newly allocated payload.
func (m *Message) Seal(aesKey AEADKey, hmacKey PRFKey) ([]byte, error) {
	out := make([]byte, PayloadSize(len(m.AppData)))
	return GeneratePayload(aesKey, hmacKey, m.Counter, m.AppData, out)
}

// OpenMessage parses payload into a new Message.
func OpenMessage(aesKey AEADKey, hmacKey PRFKey, payload []byte) (*Message, error) {
	size, err := AppDataSize(payload)
	if err != nil {
		return nil, err
	}

	appData := make([]byte, size)
	counter, appData, err := ParsePayload(aesKey, hmacKey, payload, appData)
	if err != nil {
		return nil, err
	}

	return &Message{Counter: counter, AppData: appData}, nil
}

// ActiveModeThreshold returns the ActiveModeThreshold (milliseconds) carried
// in m's application data.
func (m *Message) ActiveModeThreshold() (uint16, error) {
	return DecodeActiveModeThreshold(m.AppData)
}

// EncodeActiveModeThreshold returns application data holding the ICD's
// ActiveModeThreshold in milliseconds, little-endian.
func EncodeActiveModeThreshold(ms uint16) []byte {
	b := make([]byte, ActiveModeThresholdSize)
	binary.LittleEndian.PutUint16(b, ms)
	return b
}

// DecodeActiveModeThreshold reads the ActiveModeThreshold from the start of
// appData. Trailing bytes are ignored.
func DecodeActiveModeThreshold(appData []byte) (uint16, error) {
	if len(appData) < ActiveModeThresholdSize {
		return 0, ErrMalformedAppData
	}
	return binary.LittleEndian.Uint16(appData), nil
}
