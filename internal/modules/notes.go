package modules

import (
	"context"
	"strings"

	"github.com/loveeagles/planner/internal/ai"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
)

// DraftNote is the autosave kind of the note being edited.
const DraftNote = "note"

// AllSubjects matches every subject in Search.
const AllSubjects = "all"

var resources = map[string][]string{
	"Mathematics":      {"Khan Academy Math", "Wolfram Alpha", "MIT OpenCourseWare"},
	"Physics":          {"PhET Simulations", "Feynman Lectures", "Physics Classroom"},
	"Chemistry":        {"ChemSpider", "PubChem", "Chemistry LibreTexts"},
	"Biology":          {"NCBI", "Biology Online", "Crash Course Biology"},
	"Computer Science": {"Stack Overflow", "GitHub", "Coursera CS"},
	"Literature":       {"Project Gutenberg", "Poetry Foundation", "Literary Devices"},
	"History":          {"Smithsonian", "National Archives", "History.com"},
}

var defaultResources = []string{"Google Scholar", "Wikipedia", "Library Resources"}

// Resources suggests study resources for subject.
func Resources(subject string) []string {
	if r, ok := resources[subject]; ok {
		return append([]string(nil), r...)
	}
	return append([]string(nil), defaultResources...)
}

// Notes manages shared study notes.
type Notes struct {
	group
	env   Env
	notes *list[records.Note]
}

// OpenNotes opens the notes module.
func OpenNotes(ctx context.Context, env Env) *Notes {
	n := &Notes{
		env:   env,
		notes: openList(ctx, env, records.CollectionNotes, mirror.KeyNotes, func(n records.Note) string { return n.ID }),
	}
	n.group = group{n.notes}
	return n
}

func (n *Notes) Name() string { return NameNotes }

// Close cancels a pending draft save and releases the subscription.
func (n *Notes) Close() {
	cancelDraft(n.env, DraftNote)
	n.group.Close()
}

// All returns every note in arrival order.
func (n *Notes) All() []records.Note {
	return n.notes.Items()
}

// Get returns the note with id.
func (n *Notes) Get(id string) (records.Note, bool) {
	return n.notes.find(id)
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" && !containsString(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Save stores note, creating it when its ID is empty and replacing the
// existing note otherwise. Title and content are required. A saved note
// finalizes the user's note draft.
func (n *Notes) Save(ctx context.Context, note records.Note) (records.Note, error) {
	note, err := n.add(note)
	if err != nil {
		return records.Note{}, err
	}
	discardDraft(ctx, n.env, DraftNote)
	return note, nil
}

// add stores note without touching the draft.
func (n *Notes) add(note records.Note) (records.Note, error) {
	now := n.env.now()
	if note.ID == "" {
		note.ID = records.NewID(now)
	}
	note.Title = strings.TrimSpace(note.Title)
	note.Tags = cleanTags(note.Tags)
	if note.Attachments == nil {
		note.Attachments = []string{}
	}
	if note.Collaborators == nil {
		note.Collaborators = append([]string(nil), records.DefaultCollaborators...)
	}
	note.LastModified = now
	if err := note.Validate(); err != nil {
		return records.Note{}, err
	}
	n.notes.put(note)
	return note, nil
}

// Delete removes a note.
func (n *Notes) Delete(id string) error {
	return n.notes.remove(id)
}

// AddTag adds tag to a note unless it is blank or already present.
func (n *Notes) AddTag(id, tag string) (records.Note, error) {
	return n.notes.update(id, func(note *records.Note) error {
		if tag = strings.TrimSpace(tag); tag != "" && !containsString(note.Tags, tag) {
			note.Tags = append(append([]string(nil), note.Tags...), tag)
			note.LastModified = n.env.now()
		}
		return nil
	})
}

// RemoveTag removes tag from a note.
func (n *Notes) RemoveTag(id, tag string) (records.Note, error) {
	return n.notes.update(id, func(note *records.Note) error {
		kept := make([]string, 0, len(note.Tags))
		for _, t := range note.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		note.Tags = kept
		note.LastModified = n.env.now()
		return nil
	})
}

// Search returns notes whose title, content or a tag contains term
// (case-insensitive) and whose subject matches. An empty subject or
// AllSubjects matches every note.
func (n *Notes) Search(term, subject string) []records.Note {
	term = strings.ToLower(term)
	var out []records.Note
	for _, note := range n.notes.Items() {
		if subject != "" && subject != AllSubjects && note.Subject != subject {
			continue
		}
		if matchesTerm(note, term) {
			out = append(out, note)
		}
	}
	return out
}

func matchesTerm(note records.Note, term string) bool {
	if strings.Contains(strings.ToLower(note.Title), term) || strings.Contains(strings.ToLower(note.Content), term) {
		return true
	}
	for _, t := range note.Tags {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Summary summarizes a note's content.
func (n *Notes) Summary(id string) (string, error) {
	note, ok := n.notes.find(id)
	if !ok {
		return "", ErrNotFound
	}
	return ai.Summarize(note.Content), nil
}

// Questions derives short-answer review questions from a note.
func (n *Notes) Questions(id string) ([]ai.NoteQuestion, error) {
	note, ok := n.notes.find(id)
	if !ok {
		return nil, ErrNotFound
	}
	return ai.NoteQuestions(note.Content), nil
}

// SaveDraft schedules note as the user's note draft.
func (n *Notes) SaveDraft(note records.Note) {
	scheduleDraft(n.env, DraftNote, note)
}

// LoadDraft returns the user's stored note draft.
func (n *Notes) LoadDraft(ctx context.Context) (records.Note, bool, error) {
	return loadDraft[records.Note](ctx, n.env, DraftNote)
}
