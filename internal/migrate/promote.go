package migrate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
)

// MirrorCollections maps mirror keys to the per-user collections they cache.
var MirrorCollections = []struct {
	Key        string
	Collection string
}{
	{mirror.KeyAssignments, records.CollectionAssignments},
	{mirror.KeyGoals, records.CollectionGoals},
	{mirror.KeyNotes, records.CollectionNotes},
	{mirror.KeyMoodHistory, records.CollectionMoods},
	{mirror.KeyStudySessions, records.CollectionStudySessions},
	{mirror.KeyJournalEntries, records.CollectionJournalEntries},
}

// PromoteResult counts promoted documents per collection.
type PromoteResult struct {
	Result
	PerCollection map[string]int
}

// PromoteMirror copies the mirrored collections into userID's collections
// in store. Documents are upserted by id, so existing documents with the
// same id are overwritten. Unreadable mirror keys are reported and skipped.
func PromoteMirror(ctx context.Context, m *mirror.Store, store docstore.Store, userID string, l *log.Logger) (*PromoteResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("a signed-in user is required")
	}
	l = logger.Named(l, "migrate")
	result := &PromoteResult{PerCollection: make(map[string]int)}

	for _, mc := range MirrorCollections {
		raw, ok := m.ReadRaw(mc.Key)
		if !ok {
			continue
		}
		var recs []docstore.Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("mirror key %s is unreadable: %v", mc.Key, err))
			continue
		}

		path := docstore.UserCollection(userID, mc.Collection)
		for _, rec := range recs {
			id := rec.ID()
			if id == "" {
				result.Skipped++
				continue
			}
			if err := store.Set(ctx, path, id, rec); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				result.Errors = append(result.Errors, fmt.Sprintf("failed to write %s/%s: %v", path, id, err))
				continue
			}
			result.Imported++
			result.PerCollection[mc.Collection]++
		}
		l.Debug("promoted mirror collection", "key", mc.Key, "path", path, "count", result.PerCollection[mc.Collection])
	}
	return result, nil
}
