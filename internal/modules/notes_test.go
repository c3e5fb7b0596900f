package modules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/loveeagles/planner/internal/records"
)

func TestNotes_Save(t *testing.T) {
	f := newFixture(t, "")
	n := OpenNotes(context.Background(), f.env)
	defer n.Close()

	note, err := n.Save(context.Background(), records.Note{
		Title:   " Cell biology ",
		Content: "Mitochondria make ATP.",
		Subject: "Biology",
		Tags:    []string{"cells", " cells", "", "energy"},
	})
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if note.Title != "Cell biology" {
		t.Errorf("Title = %q", note.Title)
	}
	if diff := cmp.Diff([]string{"cells", "energy"}, note.Tags); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(records.DefaultCollaborators, note.Collaborators); diff != "" {
		t.Errorf("Collaborators mismatch (-want +got):\n%s", diff)
	}
	if !note.LastModified.Equal(now) {
		t.Errorf("LastModified = %v, want %v", note.LastModified, now)
	}

	f.clock.Add(time.Minute)
	note.Content = "Mitochondria make ATP via respiration."
	updated, err := n.Save(context.Background(), note)
	if err != nil {
		t.Fatalf("Save(update) failed: %v", err)
	}
	if len(n.All()) != 1 {
		t.Errorf("All() has %d notes after update, want 1", len(n.All()))
	}
	if !updated.LastModified.After(note.LastModified) {
		t.Error("LastModified not advanced on update")
	}

	if _, err := n.Save(context.Background(), records.Note{Title: "Empty"}); !errors.Is(err, records.ErrValidation) {
		t.Errorf("Save(no content) error = %v", err)
	}
}

func TestNotes_Tags(t *testing.T) {
	f := newFixture(t, "")
	n := OpenNotes(context.Background(), f.env)
	defer n.Close()

	note, _ := n.Save(context.Background(), records.Note{Title: "Forces", Content: "F = ma", Subject: "Physics"})
	note, _ = n.AddTag(note.ID, "newton")
	note, _ = n.AddTag(note.ID, "newton")
	note, _ = n.AddTag(note.ID, "  ")
	if diff := cmp.Diff([]string{"newton"}, note.Tags); diff != "" {
		t.Errorf("Tags after AddTag mismatch (-want +got):\n%s", diff)
	}
	note, _ = n.RemoveTag(note.ID, "newton")
	if len(note.Tags) != 0 {
		t.Errorf("Tags after RemoveTag = %v", note.Tags)
	}
	if _, err := n.AddTag("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddTag(missing) error = %v", err)
	}
}

func TestNotes_Search(t *testing.T) {
	f := newFixture(t, "")
	n := OpenNotes(context.Background(), f.env)
	defer n.Close()

	save := func(id, title, content, subject string, tags ...string) {
		t.Helper()
		if _, err := n.Save(context.Background(), records.Note{ID: id, Title: title, Content: content, Subject: subject, Tags: tags}); err != nil {
			t.Fatalf("Save(%s) failed: %v", id, err)
		}
	}
	save("1", "Derivatives", "Power rule", "Mathematics", "calculus")
	save("2", "Kinematics", "Velocity is the derivative of position", "Physics")
	save("3", "Integrals", "Area under a curve", "Mathematics", "Calculus")

	tests := []struct {
		term, subject string
		want          []string
	}{
		{"deriv", "", []string{"1", "2"}},
		{"DERIV", AllSubjects, []string{"1", "2"}},
		{"deriv", "Physics", []string{"2"}},
		{"calculus", "", []string{"1", "3"}},
		{"", "Mathematics", []string{"1", "3"}},
		{"quantum", "", nil},
	}
	for _, tt := range tests {
		var got []string
		for _, note := range n.Search(tt.term, tt.subject) {
			got = append(got, note.ID)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Search(%q, %q) mismatch (-want +got):\n%s", tt.term, tt.subject, diff)
		}
	}
}

func TestNotes_SummaryAndQuestions(t *testing.T) {
	f := newFixture(t, "")
	n := OpenNotes(context.Background(), f.env)
	defer n.Close()

	if _, err := n.Summary("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Summary(missing) error = %v", err)
	}
	note, _ := n.Save(context.Background(), records.Note{
		Title:   "Photosynthesis",
		Content: "Plants convert light energy into chemical energy. Chlorophyll absorbs mostly red and blue light.",
	})
	sum, err := n.Summary(note.ID)
	if err != nil || sum == "" {
		t.Errorf("Summary() = %q, %v", sum, err)
	}
	if _, err := n.Questions(note.ID); err != nil {
		t.Errorf("Questions() failed: %v", err)
	}
}

func TestResources(t *testing.T) {
	if got := Resources("Physics"); got[0] != "PhET Simulations" {
		t.Errorf("Resources(Physics) = %v", got)
	}
	if got := Resources("Art"); len(got) != 3 || got[0] != "Google Scholar" {
		t.Errorf("Resources(Art) = %v", got)
	}
	got := Resources("History")
	got[0] = "changed"
	if Resources("History")[0] == "changed" {
		t.Error("Resources() returned a shared slice")
	}
}
