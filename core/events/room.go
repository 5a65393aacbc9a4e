package events

const (
	// KindRoomDisconnected identifies loss of room membership.
	KindRoomDisconnected Kind = "room.disconnected"
	// KindUnrecognized identifies a payload that failed decoding.
	KindUnrecognized Kind = "unrecognized"
)

// RoomDisconnected marks loss of room membership outside a graceful end.
type RoomDisconnected struct {
	Base
	Reason string
}

// NewRoomDisconnected creates a room disconnected event.
func NewRoomDisconnected(reason string) RoomDisconnected {
	return RoomDisconnected{Base: NewBase(KindRoomDisconnected), Reason: reason}
}

// Unrecognized marks a payload that could not be decoded. It carries no
// data and is dropped by the consumer.
type Unrecognized struct{ Base }

// NewUnrecognized creates an unrecognized payload event.
func NewUnrecognized() Unrecognized {
	return Unrecognized{Base: NewBase(KindUnrecognized)}
}
