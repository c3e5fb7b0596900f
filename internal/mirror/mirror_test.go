package mirror

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/loveeagles/planner/internal/logger"
)

type goal struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Progress int    `json:"progress"`
}

func testMirror(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "mirror"), maxBytes, logger.Discard())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	return s
}

func TestRead_MissingKeyReturnsDefault(t *testing.T) {
	s := testMirror(t, 0)
	got := Read(s, KeyAssignments, []goal{})
	if got == nil || len(got) != 0 {
		t.Errorf("Read() = %v, want empty list", got)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	s := testMirror(t, 0)
	in := []goal{{ID: "1", Text: "Read", Progress: 40}, {ID: "2", Text: "Write"}}

	if !s.Write(KeyGoals, in) {
		t.Fatal("Write() reported failure")
	}
	got := Read(s, KeyGoals, []goal(nil))
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}

	// Latest write wins.
	s.Write(KeyGoals, in[:1])
	if got := Read(s, KeyGoals, []goal(nil)); len(got) != 1 {
		t.Errorf("len(Read()) = %d after overwrite, want 1", len(got))
	}
}

func TestRead_CorruptPayloadReturnsDefault(t *testing.T) {
	s := testMirror(t, 0)
	if err := os.WriteFile(filepath.Join(s.Dir(), KeyNotes+".json"), []byte("{nope"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	def := []goal{{ID: "d"}}
	got := Read(s, KeyNotes, def)
	if diff := cmp.Diff(def, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_QuotaKeepsPreviousValue(t *testing.T) {
	s := testMirror(t, 64)

	if !s.Write(KeyGoals, []goal{{ID: "1"}}) {
		t.Fatal("small Write() failed")
	}
	big := []goal{{ID: "2", Text: strings.Repeat("x", 200)}}
	if s.Write(KeyGoals, big) {
		t.Fatal("Write() over quota reported success")
	}
	got := Read(s, KeyGoals, []goal(nil))
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Read() = %v, want previous value", got)
	}
}

func TestWrite_QuotaCountsOtherKeys(t *testing.T) {
	s := testMirror(t, 100)
	if !s.Write(KeyNotes, strings.Repeat("a", 60)) {
		t.Fatal("first Write() failed")
	}
	// Replacing the same key does not double count it.
	if !s.Write(KeyNotes, strings.Repeat("b", 60)) {
		t.Fatal("overwrite failed")
	}
	if s.Write(KeyGoals, strings.Repeat("c", 60)) {
		t.Error("Write() should exceed the shared quota")
	}
}

func TestKeysAndRemove(t *testing.T) {
	s := testMirror(t, 0)
	s.Write(KeyMoodHistory, []int{1})
	s.Write(KeyCoachChat, []int{2})

	if diff := cmp.Diff([]string{KeyCoachChat, KeyMoodHistory}, s.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}

	s.Remove(KeyCoachChat)
	s.Remove("missing")
	if diff := cmp.Diff([]string{KeyMoodHistory}, s.Keys()); diff != "" {
		t.Errorf("Keys() after Remove mismatch (-want +got):\n%s", diff)
	}
	if s.Usage() == 0 {
		t.Error("Usage() = 0 with one stored key")
	}
}

func TestWrite_InvalidKey(t *testing.T) {
	s := testMirror(t, 0)
	if s.Write("../escape", 1) {
		t.Error("Write() with path separator in key succeeded")
	}
	if got := Read(s, "../escape", 7); got != 7 {
		t.Errorf("Read() = %d, want default", got)
	}
}
