// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/quizserver/session"
)

// SessionBroadcaster 把领域事件扇出到订阅房间主题的会话。
// 实现 room.Broadcaster 接口。传输本身由session/network层拥有。
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom 发给订阅某房间主题的全部会话。
// 单个会话发送失败不中断其余会话。
func (b *SessionBroadcaster) BroadcastToRoom(code string, event string, payload interface{}) error {
	sessions := b.sessionManager.GetByRoomCode(code)

	for _, s := range sessions {
		if err := s.Send(event, payload); err != nil {
			// 发送失败的连接由其读循环负责清理
			continue
		}
	}
	return nil
}

// BroadcastToAll 发给所有在线会话
func (b *SessionBroadcaster) BroadcastToAll(event string, payload interface{}) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(event, payload); err != nil {
			continue
		}
	}
	return nil
}

// SendToUser 发给某用户的全部会话
func (b *SessionBroadcaster) SendToUser(userID int64, event string, payload interface{}) error {
	for _, s := range b.sessionManager.GetByUserID(userID) {
		if err := s.Send(event, payload); err != nil {
			continue
		}
	}
	return nil
}
