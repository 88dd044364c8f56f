package memory

import (
	"sync"
	"testing"

	"github.com/harukisa/taskmate/internal/domain/conversation"
)

func TestUpdateCreatesStateOnFirstUse(t *testing.T) {
	s := NewStore()

	s.Update("U1", func(st *conversation.State) {
		if st.Seeded() {
			t.Error("fresh state should be empty")
		}
		st.Seed("instruction")
	})

	s.Update("U1", func(st *conversation.State) {
		if !st.Seeded() {
			t.Error("state should persist between updates")
		}
	})

	if s.Users() != 1 {
		t.Errorf("Users = %d, want 1", s.Users())
	}
}

func TestUpdateIsolatesUsers(t *testing.T) {
	s := NewStore()

	s.Update("U1", func(st *conversation.State) { st.Seed("a") })
	s.Update("U2", func(st *conversation.State) {
		if st.Seeded() {
			t.Error("users must not share state")
		}
	})
}

func TestUpdateSerializesPerUser(t *testing.T) {
	s := NewStore()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("U1", func(st *conversation.State) {
				st.Append(conversation.Turn{Role: conversation.RoleUser, Text: "m"})
			})
		}()
	}
	wg.Wait()

	s.Update("U1", func(st *conversation.State) {
		if len(st.Turns) != workers {
			t.Errorf("turns = %d, want %d", len(st.Turns), workers)
		}
	})
}
