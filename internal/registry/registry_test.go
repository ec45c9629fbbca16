package registry

import (
	"sync"
	"testing"

	"pollboard/pkg/types"
)

// fakeConn is a minimal Conn implementation for registry tests.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []types.ServerEvent
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event types.ServerEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error { return nil }

func TestRegisterAndList(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(&fakeConn{id: "c1"}, "Ada", types.RoleStudent); err != nil {
		t.Fatalf("register Ada: %v", err)
	}
	if _, err := r.Register(&fakeConn{id: "c2"}, "teacher_a1b2c3d4", types.RoleTeacher); err != nil {
		t.Fatalf("register teacher: %v", err)
	}
	if _, err := r.Register(&fakeConn{id: "c3"}, "Grace", types.RoleStudent); err != nil {
		t.Fatalf("register Grace: %v", err)
	}

	participants := r.List()
	if len(participants) != 3 {
		t.Fatalf("List() returned %d participants, want 3", len(participants))
	}

	// Insertion order must be preserved.
	wantNames := []string{"Ada", "teacher_a1b2c3d4", "Grace"}
	for i, want := range wantNames {
		if participants[i].DisplayName != want {
			t.Errorf("participants[%d] = %q, want %q", i, participants[i].DisplayName, want)
		}
	}
}

func TestRegisterDuplicateNameTolerated(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Register(&fakeConn{id: "c1"}, "Ada", types.RoleStudent); err != nil {
		t.Fatalf("first register: %v", err)
	}

	participant, err := r.Register(&fakeConn{id: "c2"}, "Ada", types.RoleStudent)
	if err != ErrDuplicateName {
		t.Errorf("duplicate register error = %v, want ErrDuplicateName", err)
	}
	if participant == nil {
		t.Fatal("duplicate register should still return the participant")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2: duplicate names are tolerated, not rejected", r.Len())
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register(&fakeConn{id: "c1"}, "Ada", types.RoleStudent); err != nil {
		t.Fatalf("register: %v", err)
	}

	p := r.Unregister("c1")
	if p == nil || p.DisplayName != "Ada" {
		t.Fatalf("Unregister returned %+v, want Ada", p)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after unregister, want 0", r.Len())
	}

	// Second removal is a no-op.
	if p := r.Unregister("c1"); p != nil {
		t.Errorf("second Unregister returned %+v, want nil", p)
	}
}

func TestFindByName(t *testing.T) {
	r := NewRegistry()
	c := &fakeConn{id: "c1"}
	if _, err := r.Register(c, "Ada", types.RoleStudent); err != nil {
		t.Fatalf("register: %v", err)
	}

	conn, participant, found := r.FindByName("Ada")
	if !found {
		t.Fatal("FindByName should locate a registered participant")
	}
	if conn.ID() != "c1" || participant.ConnectionID != "c1" {
		t.Errorf("FindByName returned conn %q participant %q, want c1", conn.ID(), participant.ConnectionID)
	}

	if _, _, found := r.FindByName("Nobody"); found {
		t.Error("FindByName should not locate an absent participant")
	}
}

func TestSnapshotExternalLabels(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register(&fakeConn{id: "c1"}, "teacher_a1b2c3d4", types.RoleTeacher); err != nil {
		t.Fatalf("register teacher: %v", err)
	}
	if _, err := r.Register(&fakeConn{id: "c2"}, "Ada", types.RoleStudent); err != nil {
		t.Fatalf("register student: %v", err)
	}

	views := r.Snapshot()
	if len(views) != 2 {
		t.Fatalf("Snapshot() returned %d entries, want 2", len(views))
	}
	if views[0].ExternalLabel != types.TeacherLabel {
		t.Errorf("teacher label = %q, want %q", views[0].ExternalLabel, types.TeacherLabel)
	}
	if views[1].ExternalLabel != "Ada" {
		t.Errorf("student label = %q, want declared name", views[1].ExternalLabel)
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			conn := &fakeConn{id: id}
			_, _ = r.Register(conn, "user-"+id, types.RoleStudent)
			r.Unregister(id)
		}(i)
	}
	wg.Wait()

	if got := r.Len(); got != 0 {
		t.Errorf("Len() = %d after balanced register/unregister, want 0", got)
	}
}
