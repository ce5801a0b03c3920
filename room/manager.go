// room/manager.go
package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/quizserver/logger"
	"github.com/wfunc/quizserver/models"
	"github.com/wfunc/quizserver/state"
	"github.com/wfunc/quizserver/timer"
)

// 3位数字码只有1000个，留余量避免碰撞重试退化
const maxActiveRooms = 900

// Manager 管理所有活动房间。只守护 code->Room 的映射，
// 房间内部状态由各自的worker独占。
type Manager struct {
	rooms    map[string]*Room
	mutex    sync.RWMutex
	timers   *timer.Manager
	settings Settings

	sweepTimerID int64

	// OnRoomsChanged 活动房间数变化时回调(指标上报)
	OnRoomsChanged func(count int)
	// OnPublicRoomsChanged 公开房间列表变化时回调(推送列表更新)
	OnPublicRoomsChanged func()
}

// NewManager 创建房间管理器
func NewManager(timers *timer.Manager, settings Settings) *Manager {
	return &Manager{
		rooms:    make(map[string]*Room),
		timers:   timers,
		settings: settings,
	}
}

// CreateRoom 生成随机3位房间码(与当前活动房间不冲突)，创建房间并插入。
// 房间码在房间移除后回收复用。
func (m *Manager) CreateRoom(hostID int64, hostName, hostSessionID string, lessonIDs []int64,
	questions []models.Question, isLocked bool, broadcaster Broadcaster) (*Room, error) {

	m.mutex.Lock()

	if len(m.rooms) >= maxActiveRooms {
		m.mutex.Unlock()
		return nil, ErrTooManyRooms
	}

	code := m.generateCode()
	room := NewRoom(code, hostID, hostName, hostSessionID, lessonIDs, questions, isLocked,
		m.settings, broadcaster, m.timers, m.removeIfCurrent)
	m.rooms[code] = room
	count := len(m.rooms)
	m.mutex.Unlock()

	logger.Log.Infof("room %s created by host %d (%d questions, locked=%v)",
		code, hostID, len(questions), isLocked)

	m.notifyChanged(count, !isLocked)
	return room, nil
}

// generateCode 调用方必须持有写锁
func (m *Manager) generateCode() string {
	for {
		code := fmt.Sprintf("%03d", rand.Intn(1000))
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

// GetRoom 按房间码查找
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

// RemoveRoom 从管理器移除并关闭房间，房间码即刻回收
func (m *Manager) RemoveRoom(code string) {
	m.remove(code, nil)
}

// removeIfCurrent 宽限期定时回调用。房间码在移除后即刻回收，
// 回调触发时该码可能已属于一个新房间，只在指针仍匹配时移除。
func (m *Manager) removeIfCurrent(code string, expected *Room) {
	m.remove(code, expected)
}

func (m *Manager) remove(code string, expected *Room) {
	m.mutex.Lock()
	room, exists := m.rooms[code]
	if exists && expected != nil && room != expected {
		m.mutex.Unlock()
		return
	}
	if exists {
		delete(m.rooms, code)
	}
	count := len(m.rooms)
	m.mutex.Unlock()

	if !exists {
		return
	}

	wasPublic := !room.IsLocked
	room.Close()
	logger.Log.Infof("room %s removed", code)
	m.notifyChanged(count, wasPublic)
}

// Count 返回活动房间数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// ListPublicRooms 返回未锁定且仍在等待玩家的房间
func (m *Manager) ListPublicRooms() []models.PublicRoomInfo {
	result := make([]models.PublicRoomInfo, 0)
	for _, room := range m.snapshotRooms() {
		info, err := room.Info()
		if err != nil {
			continue
		}
		if info.IsLocked || info.Status != state.Waiting {
			continue
		}
		result = append(result, models.PublicRoomInfo{
			Code:         info.Code,
			TeacherName:  info.HostName,
			PlayersCount: info.PlayersCount,
			NumQuestions: info.NumQuestions,
			CreatedAt:    info.CreatedAt.Format(time.RFC3339),
		})
	}
	return result
}

// SweepStale 移除所有超龄房间(无论状态)，返回移除数量。
// 这是针对主持人崩溃后被遗弃房间的安全网。
func (m *Manager) SweepStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	var stale []string
	for _, room := range m.snapshotRooms() {
		if room.CreatedAt.Before(cutoff) {
			stale = append(stale, room.Code)
		}
	}

	for _, code := range stale {
		logger.Log.Infof("sweeping stale room %s", code)
		m.RemoveRoom(code)
	}
	return len(stale)
}

// StartSweeper 启动周期性过期清扫
func (m *Manager) StartSweeper(interval, maxAge time.Duration) {
	m.sweepTimerID = m.timers.Schedule(interval, interval, func() {
		m.SweepStale(maxAge)
	})
}

// Close 关闭所有房间并停止清扫
func (m *Manager) Close() {
	if m.sweepTimerID != 0 {
		m.timers.Remove(m.sweepTimerID)
	}

	m.mutex.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.rooms = make(map[string]*Room)
	m.mutex.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}

func (m *Manager) snapshotRooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) notifyChanged(count int, publicChanged bool) {
	if m.OnRoomsChanged != nil {
		m.OnRoomsChanged(count)
	}
	if publicChanged && m.OnPublicRoomsChanged != nil {
		m.OnPublicRoomsChanged()
	}
}
