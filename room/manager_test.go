package room

import (
	"errors"
	"testing"
	"time"

	"github.com/wfunc/quizserver/timer"
)

func newTestManager(t *testing.T) (*Manager, *mockBroadcaster) {
	t.Helper()
	timers := timer.NewManager()
	t.Cleanup(timers.Stop)

	m := NewManager(timers, DefaultSettings())
	t.Cleanup(m.Close)
	return m, &mockBroadcaster{}
}

func TestManager_CreateAndGetRoom(t *testing.T) {
	m, b := newTestManager(t)

	room, err := m.CreateRoom(100, "Teacher", "hs", []int64{1}, testQuestions(2), false, b)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(room.Code) != 3 {
		t.Errorf("expected 3-digit code, got %q", room.Code)
	}

	got, exists := m.GetRoom(room.Code)
	if !exists || got != room {
		t.Error("GetRoom did not return the created room")
	}
	if _, exists := m.GetRoom("no-such"); exists {
		t.Error("GetRoom found a room that does not exist")
	}
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}
}

func TestManager_CodesAreUnique(t *testing.T) {
	m, b := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room, err := m.CreateRoom(int64(i), "Teacher", "hs", nil, testQuestions(1), false, b)
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if seen[room.Code] {
			t.Fatalf("duplicate code %s among active rooms", room.Code)
		}
		seen[room.Code] = true
	}
}

func TestManager_RemoveRoomClosesIt(t *testing.T) {
	m, b := newTestManager(t)

	room, _ := m.CreateRoom(100, "Teacher", "hs", nil, testQuestions(1), false, b)
	m.RemoveRoom(room.Code)

	if m.Count() != 0 {
		t.Errorf("expected count 0 after remove, got %d", m.Count())
	}
	if err := room.Join(1, "Alice", "s1"); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("expected ErrRoomClosed after removal, got %v", err)
	}

	// removing twice is harmless
	m.RemoveRoom(room.Code)
}

func TestManager_ListPublicRooms(t *testing.T) {
	m, b := newTestManager(t)

	open, _ := m.CreateRoom(100, "Alice", "h1", nil, testQuestions(3), false, b)
	m.CreateRoom(200, "Bob", "h2", nil, testQuestions(1), true, b)
	started, _ := m.CreateRoom(300, "Carol", "h3", nil, testQuestions(1), false, b)

	started.Join(1, "Player", "s1")
	if err := started.Start(300); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// 锁定的和已开赛的都不应出现
	list := m.ListPublicRooms()
	if len(list) != 1 {
		t.Fatalf("expected 1 public room, got %d", len(list))
	}
	info := list[0]
	if info.Code != open.Code || info.TeacherName != "Alice" || info.NumQuestions != 3 {
		t.Errorf("unexpected listing: %+v", info)
	}
	if _, err := time.Parse(time.RFC3339, info.CreatedAt); err != nil {
		t.Errorf("created_at is not RFC3339: %q", info.CreatedAt)
	}
}

func TestManager_SweepStale(t *testing.T) {
	m, b := newTestManager(t)

	stale, _ := m.CreateRoom(100, "Old", "h1", nil, testQuestions(1), false, b)
	fresh, _ := m.CreateRoom(200, "New", "h2", nil, testQuestions(1), false, b)

	stale.CreatedAt = time.Now().Add(-3 * time.Hour)

	if n := m.SweepStale(2 * time.Hour); n != 1 {
		t.Fatalf("expected 1 room swept, got %d", n)
	}
	if _, exists := m.GetRoom(stale.Code); exists {
		t.Error("stale room still present")
	}
	if _, exists := m.GetRoom(fresh.Code); !exists {
		t.Error("fresh room was swept")
	}
}

func TestManager_RemovalAfterGrace(t *testing.T) {
	timers := timer.NewManager()
	t.Cleanup(timers.Stop)

	settings := DefaultSettings()
	settings.RemovalGrace = 200 * time.Millisecond

	m := NewManager(timers, settings)
	t.Cleanup(m.Close)
	b := &mockBroadcaster{}

	room, _ := m.CreateRoom(100, "Teacher", "hs", nil, testQuestions(1), false, b)
	room.Join(1, "Alice", "s1")
	room.Start(100)
	room.Skip(100)
	if err := room.Next(100); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	// 结束后宽限期一到房间应被移除
	deadline := time.Now().Add(2 * time.Second)
	for m.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("finished room was not removed after grace period")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestManager_RecycledCodeSurvivesStaleGraceTimer(t *testing.T) {
	timers := timer.NewManager()
	t.Cleanup(timers.Stop)

	settings := DefaultSettings()
	settings.RemovalGrace = 300 * time.Millisecond

	m := NewManager(timers, settings)
	t.Cleanup(m.Close)
	b := &mockBroadcaster{}

	old, _ := m.CreateRoom(100, "Teacher", "hs", nil, testQuestions(1), false, b)
	old.Join(1, "Alice", "s1")
	old.Start(100)
	old.Skip(100)
	if err := old.Next(100); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	// 清扫等场景会在宽限期结束前移除房间，房间码随即回收
	code := old.Code
	m.RemoveRoom(code)

	fresh := NewRoom(code, 200, "Other", "h2", nil, testQuestions(1), false,
		settings, b, timers, m.removeIfCurrent)
	m.mutex.Lock()
	m.rooms[code] = fresh
	m.mutex.Unlock()

	// 旧房间的宽限期回调(若未被取消)不得移除复用该码的新房间
	time.Sleep(700 * time.Millisecond)

	got, exists := m.GetRoom(code)
	if !exists || got != fresh {
		t.Fatalf("room that recycled code %s was removed by a stale grace timer", code)
	}
}

func TestManager_ChangeCallbacks(t *testing.T) {
	m, b := newTestManager(t)

	var counts []int
	publicChanges := 0
	m.OnRoomsChanged = func(count int) { counts = append(counts, count) }
	m.OnPublicRoomsChanged = func() { publicChanges++ }

	room, _ := m.CreateRoom(100, "Teacher", "hs", nil, testQuestions(1), false, b)
	m.CreateRoom(200, "Other", "h2", nil, testQuestions(1), true, b)
	m.RemoveRoom(room.Code)

	if len(counts) != 3 || counts[0] != 1 || counts[1] != 2 || counts[2] != 1 {
		t.Errorf("unexpected room count callbacks: %v", counts)
	}
	// 锁定房间的创建不影响公开列表
	if publicChanges != 2 {
		t.Errorf("expected 2 public list changes, got %d", publicChanges)
	}
}
