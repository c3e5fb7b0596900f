// Package docstore provides the document store behind the planner's sync layer.
//
// Documents are opaque JSON-like maps (Record) addressed by a Path and an id.
// A Path is either a per-user collection (users/<uid>/<name>) or a top-level
// collection shared by all users (quizzes, quiz-scores, streaks, drafts).
//
// Within a path ids are unique and the last write for an id replaces the
// previous value entirely. List returns records in arrival order: the order in
// which each id was first written. Overwrites keep the original position.
package docstore

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UsersNamespace is the first segment of every per-user collection path.
const UsersNamespace = "users"

// Top-level collections shared across users.
const (
	CollectionQuizzes    = "quizzes"
	CollectionQuizScores = "quiz-scores"
	CollectionStreaks    = "streaks"
	CollectionDrafts     = "drafts"
)

// Record is one opaque document. Records read from a store always carry
// their id under the "id" key.
type Record map[string]any

// ID returns the record id, or "" if the record has none.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Path addresses a collection.
type Path struct {
	// Namespace is UsersNamespace for per-user collections, empty otherwise.
	Namespace string
	// UserID scopes per-user collections.
	UserID string
	// Collection is the collection name.
	Collection string
}

// UserCollection returns the path of a per-user collection.
func UserCollection(userID, name string) Path {
	return Path{Namespace: UsersNamespace, UserID: userID, Collection: name}
}

// TopLevel returns the path of a top-level collection.
func TopLevel(name string) Path {
	return Path{Collection: name}
}

// String renders the path as users/<uid>/<name> or <name>.
func (p Path) String() string {
	if p.Namespace == "" {
		return p.Collection
	}
	return p.Namespace + "/" + p.UserID + "/" + p.Collection
}

// IsZero reports whether p is the zero Path. The zero Path is used as a
// wildcard when subscribing and when announcing external changes.
func (p Path) IsZero() bool {
	return p == Path{}
}

// Validate checks that the path is well formed.
func (p Path) Validate() error {
	if p.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if strings.Contains(p.Collection, "/") {
		return fmt.Errorf("collection must not contain '/' (got %q)", p.Collection)
	}
	switch p.Namespace {
	case "":
		if p.UserID != "" {
			return fmt.Errorf("top-level collection %q must not have a user id", p.Collection)
		}
	case UsersNamespace:
		if p.UserID == "" {
			return fmt.Errorf("user id is required for %s collections", UsersNamespace)
		}
		if strings.Contains(p.UserID, "/") {
			return fmt.Errorf("user id must not contain '/' (got %q)", p.UserID)
		}
	default:
		return fmt.Errorf("unknown namespace %q", p.Namespace)
	}
	return nil
}

// ParsePath parses the String form of a Path.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	var p Path
	switch len(parts) {
	case 1:
		p = TopLevel(parts[0])
	case 3:
		p = Path{Namespace: parts[0], UserID: parts[1], Collection: parts[2]}
	default:
		return Path{}, fmt.Errorf("invalid path %q", s)
	}
	if err := p.Validate(); err != nil {
		return Path{}, fmt.Errorf("invalid path %q: %w", s, err)
	}
	return p, nil
}

// Op is the kind of change announced on the change feed.
type Op string

const (
	// OpSet indicates a document was created or replaced.
	OpSet Op = "set"
	// OpDelete indicates a document was removed.
	OpDelete Op = "delete"
	// OpExternal indicates another process changed the store. Path and ID
	// are empty; subscribers should re-read whatever they hold.
	OpExternal Op = "external"
)

// Change is one entry on the change feed.
type Change struct {
	Path Path   `json:"-"`
	ID   string `json:"id,omitempty"`
	Op   Op     `json:"op"`
}

// Matches reports whether a subscriber of path should see c.
func (c Change) Matches(path Path) bool {
	return path.IsZero() || c.Path.IsZero() || c.Path == path
}
