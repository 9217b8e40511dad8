package benchmarks

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/bridge"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/draft"
)

// BenchmarkEncode measures graph to backend document conversion.
func BenchmarkEncode(b *testing.B) {
	w := buildChain(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bridge.Encode(w)
	}
}

// BenchmarkDecode measures backend document to graph conversion.
func BenchmarkDecode(b *testing.B) {
	data, _ := json.Marshal(bridge.Encode(buildChain(100)))
	var doc api.Document
	_ = json.Unmarshal(data, &doc)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = bridge.Decode(doc)
	}
}

// BenchmarkDocumentJSON measures the wire encoding of a saved document.
func BenchmarkDocumentJSON(b *testing.B) {
	doc := bridge.Encode(buildChain(100))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(doc)
	}
}

func draftData(b *testing.B) []byte {
	b.Helper()
	d := draft.Draft{Version: draft.Version, Key: "wf-1", Revision: 1, File: bridge.ToFile(buildChain(20))}
	data, err := d.Marshal()
	if err != nil {
		b.Fatal(err)
	}
	return data
}

// BenchmarkMemoryStore_Save measures in-memory draft save.
func BenchmarkMemoryStore_Save(b *testing.B) {
	drafts := draft.NewMemoryStore()
	data := draftData(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = drafts.Save("wf-1", i%100, data)
	}
}

// BenchmarkMemoryStore_Latest measures in-memory latest-draft lookup.
func BenchmarkMemoryStore_Latest(b *testing.B) {
	drafts := draft.NewMemoryStore()
	data := draftData(b)
	for r := 0; r < 20; r++ {
		_ = drafts.Save("wf-1", r, data)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = drafts.Latest("wf-1")
	}
}

// BenchmarkSQLiteStore_Save measures SQLite draft save.
func BenchmarkSQLiteStore_Save(b *testing.B) {
	drafts, cleanup := createSQLiteStore(b)
	defer cleanup()
	data := draftData(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = drafts.Save("wf-1", i%100, data)
	}
}

// BenchmarkSQLiteStore_Latest measures SQLite latest-draft lookup.
func BenchmarkSQLiteStore_Latest(b *testing.B) {
	drafts, cleanup := createSQLiteStore(b)
	defer cleanup()
	data := draftData(b)
	for r := 0; r < 20; r++ {
		_ = drafts.Save("wf-1", r, data)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = drafts.Latest("wf-1")
	}
}

// BenchmarkRecorder_Record measures a full autosave including pruning.
func BenchmarkRecorder_Record(b *testing.B) {
	rec := draft.NewRecorder(draft.NewMemoryStore())
	w := buildChain(20)
	w.ID = "wf-1"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = rec.Record(w)
	}
}

func createSQLiteStore(b *testing.B) (*draft.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	drafts, err := draft.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return drafts, func() {
		drafts.Close()
		os.Remove(tmpFile.Name())
	}
}
