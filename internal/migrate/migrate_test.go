package migrate

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/loveeagles/planner/internal/docstore"
	"github.com/loveeagles/planner/internal/logger"
	"github.com/loveeagles/planner/internal/mirror"
	"github.com/loveeagles/planner/internal/records"
)

func openStore(t *testing.T) *docstore.SQLStore {
	t.Helper()
	s, err := docstore.Open(filepath.Join(t.TempDir(), "planner.db"), logger.Discard())
	if err != nil {
		t.Fatalf("docstore.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var goals = docstore.UserCollection("u1", records.CollectionGoals)

func seed(t *testing.T, s docstore.Store) {
	t.Helper()
	docs := []docstore.Record{
		{"id": "g1", "text": "Read 10 books", "progress": float64(20), "completed": false},
		{"id": "g2", "text": "Learn Go", "progress": float64(80), "completed": false, "note": nil},
	}
	for _, d := range docs {
		if err := s.Set(context.Background(), goals, d.ID(), d); err != nil {
			t.Fatalf("Set(%s) failed: %v", d.ID(), err)
		}
	}
}

func ids(recs []docstore.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	sort.Strings(out)
	return out
}

func TestExportImportJSONL(t *testing.T) {
	src := openStore(t)
	seed(t, src)

	file := filepath.Join(t.TempDir(), "out", "goals.jsonl")
	n, err := ExportJSONL(context.Background(), src, goals, file)
	if err != nil {
		t.Fatalf("ExportJSONL() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("ExportJSONL() = %d, want 2", n)
	}
	if _, err := os.Stat(file + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	dst := openStore(t)
	target := docstore.UserCollection("u2", records.CollectionGoals)
	res, err := Import(context.Background(), dst, ImportOptions{File: file, Path: target})
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 0 {
		t.Errorf("Import() = %+v", res)
	}
	recs, _ := dst.List(context.Background(), target)
	if diff := cmp.Diff([]string{"g1", "g2"}, ids(recs)); diff != "" {
		t.Errorf("imported ids mismatch (-want +got):\n%s", diff)
	}

	// Importing again is an upsert.
	if _, err := Import(context.Background(), dst, ImportOptions{File: file, Path: target}); err != nil {
		t.Fatalf("second Import() failed: %v", err)
	}
	recs, _ = dst.List(context.Background(), target)
	if len(recs) != 2 {
		t.Errorf("second Import() left %d documents, want 2", len(recs))
	}
}

func TestImport_DryRunAndBackup(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	dir := t.TempDir()
	file := filepath.Join(dir, "in.jsonl")
	input := `{"id":"g3","text":"Run a 5k"}
{"text":"no id"}
`
	if err := os.WriteFile(file, []byte(input), 0600); err != nil {
		t.Fatal(err)
	}

	res, err := Import(context.Background(), s, ImportOptions{File: file, Path: goals, DryRun: true})
	if err != nil {
		t.Fatalf("Import(dry run) failed: %v", err)
	}
	if res.Imported != 1 || res.Skipped != 1 || len(res.Errors) != 1 {
		t.Errorf("Import(dry run) = %+v", res)
	}
	if recs, _ := s.List(context.Background(), goals); len(recs) != 2 {
		t.Errorf("dry run wrote documents: %d", len(recs))
	}

	res, err = Import(context.Background(), s, ImportOptions{File: file, Path: goals, Backup: true})
	if err != nil {
		t.Fatalf("Import(backup) failed: %v", err)
	}
	if res.BackupCreated == "" {
		t.Fatal("no backup created")
	}
	backup, err := ReadJSONL(res.BackupCreated)
	if err != nil {
		t.Fatalf("ReadJSONL(backup) failed: %v", err)
	}
	if diff := cmp.Diff([]string{"g1", "g2"}, ids(backup)); diff != "" {
		t.Errorf("backup ids mismatch (-want +got):\n%s", diff)
	}
	if recs, _ := s.List(context.Background(), goals); len(recs) != 3 {
		t.Errorf("documents after import = %d, want 3", len(recs))
	}
}

func TestReadJSONL_Errors(t *testing.T) {
	if _, err := ReadJSONL("/nonexistent/path.jsonl"); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := DecodeJSONL(strings.NewReader("{\"id\":\"a\"}\n{not json}\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeJSONL() error = %v, want line 2", err)
	}
}

func TestExport(t *testing.T) {
	s := openStore(t)
	seed(t, s)

	var buf bytes.Buffer
	if _, err := Export(context.Background(), s, goals, "yml", &buf); err != nil {
		t.Fatalf("Export(yaml) failed: %v", err)
	}
	var y document
	if err := yaml.Unmarshal(buf.Bytes(), &y); err != nil {
		t.Fatalf("yaml.Unmarshal() failed: %v\n%s", err, buf.String())
	}
	if y.Collection != "users/u1/goals" || len(y.Documents) != 2 {
		t.Errorf("yaml export = %+v", y)
	}

	buf.Reset()
	if _, err := Export(context.Background(), s, goals, FormatTOML, &buf); err != nil {
		t.Fatalf("Export(toml) failed: %v", err)
	}
	var tm document
	if _, err := toml.Decode(buf.String(), &tm); err != nil {
		t.Fatalf("toml.Decode() failed: %v\n%s", err, buf.String())
	}
	if len(tm.Documents) != 2 {
		t.Errorf("toml export = %+v", tm)
	}
	for _, d := range tm.Documents {
		if _, ok := d["note"]; ok {
			t.Error("null field survived toml export")
		}
	}

	buf.Reset()
	n, err := Export(context.Background(), s, goals, FormatJSONL, &buf)
	if err != nil || n != 2 || strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("Export(jsonl) = %d, %v:\n%s", n, err, buf.String())
	}

	if _, err := Export(context.Background(), s, goals, "csv", &buf); err == nil {
		t.Error("Export(csv) succeeded")
	}
}

func TestPromoteMirror(t *testing.T) {
	s := openStore(t)
	m, err := mirror.Open(t.TempDir(), mirror.DefaultMaxBytes, logger.Discard())
	if err != nil {
		t.Fatalf("mirror.Open() failed: %v", err)
	}
	m.Write(mirror.KeyGoals, []records.Goal{{ID: "g1", Text: "Visitor goal"}, {Text: "no id"}})
	m.Write(mirror.KeyMoodHistory, []records.MoodEntry{{ID: "2026-03-10", Date: "2026-03-10", Mood: "calm", Energy: 6}})
	m.Write(mirror.KeyCoachChat, []records.ChatMessage{{ID: "c1", Question: "hi"}})

	if _, err := PromoteMirror(context.Background(), m, s, "", logger.Discard()); err == nil {
		t.Error("PromoteMirror() without a user succeeded")
	}

	res, err := PromoteMirror(context.Background(), m, s, "u9", logger.Discard())
	if err != nil {
		t.Fatalf("PromoteMirror() failed: %v", err)
	}
	want := map[string]int{records.CollectionGoals: 1, records.CollectionMoods: 1}
	if diff := cmp.Diff(want, res.PerCollection); diff != "" {
		t.Errorf("PerCollection mismatch (-want +got):\n%s", diff)
	}
	if res.Imported != 2 || res.Skipped != 1 {
		t.Errorf("PromoteMirror() = %+v", res)
	}
	rec, err := s.Get(context.Background(), docstore.UserCollection("u9", records.CollectionGoals), "g1")
	if err != nil || rec["text"] != "Visitor goal" {
		t.Errorf("Get(g1) = %v, %v", rec, err)
	}
}
