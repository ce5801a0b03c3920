package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/quizserver/network"
)

type sentEvent struct {
	Event   string
	Payload interface{}
}

type mockConnection struct {
	sent   []sentEvent
	closed bool
}

func (c *mockConnection) Send(event string, payload interface{}) error {
	c.sent = append(c.sent, sentEvent{Event: event, Payload: payload})
	return nil
}

func (c *mockConnection) Close() error {
	c.closed = true
	return nil
}

func (c *mockConnection) RemoteAddr() net.Addr                { return nil }
func (c *mockConnection) SetHeartbeat(interval time.Duration) {}
func (c *mockConnection) ReadEnvelope() (*network.Envelope, error) {
	return nil, nil
}

func TestSession_SendAndClose(t *testing.T) {
	conn := &mockConnection{}
	s := NewSession("sess-1", conn)

	if err := s.Send("connected", map[string]string{"sid": "sess-1"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(conn.sent) != 1 || conn.sent[0].Event != "connected" {
		t.Errorf("unexpected sends: %+v", conn.sent)
	}

	s.Close()
	if !conn.closed {
		t.Error("expected connection closed")
	}
}

func TestSession_RoomSubscription(t *testing.T) {
	s := NewSession("sess-1", &mockConnection{})

	if s.GetRoom() != "" {
		t.Errorf("fresh session should have no room, got %q", s.GetRoom())
	}
	s.SetRoom("123")
	if s.GetRoom() != "123" {
		t.Errorf("expected room 123, got %q", s.GetRoom())
	}
	s.SetRoom("")
	if s.GetRoom() != "" {
		t.Errorf("expected room cleared, got %q", s.GetRoom())
	}
}

func TestManager_AddGetRemove(t *testing.T) {
	m := NewManager()

	s := NewSession("sess-1", &mockConnection{})
	m.Add(s)

	got, exists := m.Get("sess-1")
	if !exists || got != s {
		t.Error("Get did not return the added session")
	}
	if m.Count() != 1 {
		t.Errorf("expected count 1, got %d", m.Count())
	}

	m.Remove("sess-1")
	if _, exists := m.Get("sess-1"); exists {
		t.Error("session still present after Remove")
	}
	if m.Count() != 0 {
		t.Errorf("expected count 0, got %d", m.Count())
	}
}

func TestManager_GetByUserID(t *testing.T) {
	m := NewManager()

	a := NewSession("sess-1", &mockConnection{})
	a.UserID = 7
	b := NewSession("sess-2", &mockConnection{})
	b.UserID = 8
	m.Add(a)
	m.Add(b)

	found := m.GetByUserID(7)
	if len(found) != 1 || found[0] != a {
		t.Errorf("expected session of user 7, got %+v", found)
	}
	if found := m.GetByUserID(99); len(found) != 0 {
		t.Errorf("expected no sessions for unknown user, got %d", len(found))
	}
}

func TestManager_GetByRoomCode(t *testing.T) {
	m := NewManager()

	inRoom1 := NewSession("s1", &mockConnection{})
	inRoom1.SetRoom("123")
	inRoom2 := NewSession("s2", &mockConnection{})
	inRoom2.SetRoom("123")
	elsewhere := NewSession("s3", &mockConnection{})
	elsewhere.SetRoom("456")
	idle := NewSession("s4", &mockConnection{})

	m.Add(inRoom1)
	m.Add(inRoom2)
	m.Add(elsewhere)
	m.Add(idle)

	found := m.GetByRoomCode("123")
	if len(found) != 2 {
		t.Fatalf("expected 2 sessions in room 123, got %d", len(found))
	}
	for _, s := range found {
		if s.GetRoom() != "123" {
			t.Errorf("session %s is not in room 123", s.ID)
		}
	}

	if all := m.All(); len(all) != 4 {
		t.Errorf("expected 4 sessions total, got %d", len(all))
	}
}
