package store

import (
	"path/filepath"
	"testing"

	"github.com/chazu/dialogvm/pkg/value"
	"github.com/chazu/dialogvm/pkg/vm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "saves.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	snap := vm.Snapshot{
		SceneName:    "chapter-one",
		IP:           42,
		Stack:        []value.Value{value.Int32(7), value.Str("hi")},
		Flags:        map[string]value.Value{"coins": value.Int32(3)},
		Globals:      map[string]value.Value{},
		SelectChoice: true,
		Choices:      []vm.ChoiceSnapshot{{Target: 100, Text: "go north"}},
	}

	if err := s.Save("slot-a", snap, 1000); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load("slot-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SceneName != snap.SceneName || got.IP != snap.IP {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Stack) != 2 || got.Stack[1].S != "hi" {
		t.Fatalf("stack round trip mismatch: %+v", got.Stack)
	}
	if got.Flags["coins"].I != 3 {
		t.Fatalf("flags round trip mismatch: %+v", got.Flags)
	}
	if !got.SelectChoice || len(got.Choices) != 1 || got.Choices[0].Text != "go north" {
		t.Fatalf("choice state round trip mismatch: %+v", got)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load("nope"); err != ErrSlotNotFound {
		t.Fatalf("Load(missing) = %v, want ErrSlotNotFound", err)
	}
}

func TestSaveOverwritesSameSlot(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("slot-a", vm.Snapshot{IP: 1}, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("slot-a", vm.Snapshot{IP: 2}, 2); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load("slot-a")
	if err != nil {
		t.Fatal(err)
	}
	if got.IP != 2 {
		t.Fatalf("expected overwrite to win, got ip=%d", got.IP)
	}
}

func TestDeleteAndListSlots(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save("a", vm.Snapshot{}, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("b", vm.Snapshot{}, 2); err != nil {
		t.Fatal(err)
	}

	slots, err := s.ListSlots()
	if err != nil || len(slots) != 2 {
		t.Fatalf("ListSlots = %v, %v", slots, err)
	}

	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}
	slots, err = s.ListSlots()
	if err != nil || len(slots) != 1 || slots[0] != "b" {
		t.Fatalf("after delete, ListSlots = %v, %v", slots, err)
	}
}
