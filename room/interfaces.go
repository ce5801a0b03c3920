package room

// Broadcaster defines the interface for delivering events to room topics and
// individual users. This is defined here to break the import cycle between
// room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(code string, event string, payload interface{}) error
	SendToUser(userID int64, event string, payload interface{}) error
}
