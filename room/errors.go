package room

import (
	"errors"
)

// 命令级错误，同步返回给调用方，不影响房间worker和其他玩家
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomClosed         = errors.New("room closed")
	ErrNotHost            = errors.New("only the room host can do this")
	ErrInvalidState       = errors.New("command not allowed in current room state")
	ErrDuplicatePlayer    = errors.New("player already joined")
	ErrNotInRoom          = errors.New("player not in room")
	ErrAlreadyAnswered    = errors.New("already answered this question")
	ErrAnswerWindowClosed = errors.New("answer window closed")
	ErrTooManyRooms       = errors.New("too many active rooms")
)
