package modules

import (
	"context"
	"strings"
	"testing"
)

func TestVoice_AddAssignment(t *testing.T) {
	f := newFixture(t, "")
	v := OpenVoice(context.Background(), f.env)
	defer v.Close()

	tests := []struct {
		command     string
		wantSubject string
		wantDue     string
		wantTitle   string
	}{
		{"Add assignment for Math homework due tomorrow", "Mathematics", "2026-03-11", "homework"},
		{"add task essay draft", "General", "2026-03-17", "essay draft"},
		{"add assignment", "General", "2026-03-17", "General assignment"},
		{"add assignment biology lab report", "Biology", "2026-03-17", "lab report"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			r, err := v.Do(context.Background(), tt.command)
			if err != nil {
				t.Fatalf("Do() failed: %v", err)
			}
			if r.Action != ActionAssignment || r.Assignment == nil {
				t.Fatalf("Do() = %+v", r)
			}
			a := r.Assignment
			if a.Subject != tt.wantSubject || a.DueDate != tt.wantDue || a.Title != tt.wantTitle {
				t.Errorf("assignment = {%q %q %q}, want {%q %q %q}",
					a.Subject, a.DueDate, a.Title, tt.wantSubject, tt.wantDue, tt.wantTitle)
			}
		})
	}
	if n := len(v.planner.Assignments()); n != len(tests) {
		t.Errorf("planner has %d assignments, want %d", n, len(tests))
	}
}

func TestVoice_Other(t *testing.T) {
	f := newFixture(t, "")
	v := OpenVoice(context.Background(), f.env)
	defer v.Close()

	r, err := v.Do(context.Background(), "Take note about the Krebs cycle")
	if err != nil {
		t.Fatalf("Do(note) failed: %v", err)
	}
	if r.Action != ActionNote || r.Note == nil {
		t.Fatalf("Do(note) = %+v", r)
	}
	if r.Note.Content != "the krebs cycle" || r.Note.Title != "Voice Note - 3/10/2026" || r.Note.Tags[0] != VoiceNoteTag {
		t.Errorf("note = %+v", r.Note)
	}

	for cmd, action := range map[string]string{
		"start timer for physics": ActionTimer,
		"remind me about exams":   ActionReminder,
		"play some music":         ActionUnknown,
	} {
		r, err := v.Do(context.Background(), cmd)
		if err != nil || r.Action != action {
			t.Errorf("Do(%q) = %+v, %v; want action %s", cmd, r, err, action)
		}
	}
	r, _ = v.Do(context.Background(), "Play some music")
	if !strings.Contains(r.Message, "play some music") {
		t.Errorf("unknown reply = %q", r.Message)
	}
}
