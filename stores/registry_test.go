package stores

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	chromem "github.com/philippgille/chromem-go"

	"github.com/richinex/scriba/model"
)

// fakeEmbed maps text to a deterministic unit vector so similarity ranking
// is stable without a network call.
func fakeEmbed(_ context.Context, text string) ([]float32, error) {
	var a, b float64
	for i, r := range text {
		if i%2 == 0 {
			a += float64(r)
		} else {
			b += float64(r)
		}
	}
	norm := math.Sqrt(a*a + b*b)
	if norm == 0 {
		norm = 1
	}
	return []float32{float32(a / norm), float32(b / norm)}, nil
}

func seedStore(t *testing.T, root, name string, contents []string) {
	t.Helper()
	db, err := chromem.NewPersistentDB(filepath.Join(root, name), false)
	if err != nil {
		t.Fatalf("failed to create store %q: %v", name, err)
	}
	col, err := db.GetOrCreateCollection(CollectionName, nil, fakeEmbed)
	if err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}
	docs := make([]chromem.Document, 0, len(contents))
	for i, c := range contents {
		docs = append(docs, chromem.Document{
			ID:      filepath.Join(name, "doc", string(rune('a'+i))),
			Content: c,
		})
	}
	if err := col.AddDocuments(context.Background(), docs, 1); err != nil {
		t.Fatalf("failed to add documents: %v", err)
	}
}

func TestRegistryListAndHas(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root, "release_notes", []string{"v1 released"})
	seedStore(t, root, "docs", []string{"install guide"})

	r := NewRegistry(root, fakeEmbed)

	infos, err := r.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List() returned %d stores, want 2", len(infos))
	}
	if infos[0].Name != "docs" || infos[1].Name != "release_notes" {
		t.Errorf("List() order = %v, want name order", infos)
	}
	if infos[1].DisplayName != "Release Notes" {
		t.Errorf("display name = %q, want %q", infos[1].DisplayName, "Release Notes")
	}

	if !r.Has("docs") {
		t.Error("Has(docs) = false, want true")
	}
	if r.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
	if r.Has("../docs") {
		t.Error("Has accepted a path-escaping name")
	}
}

func TestRegistryQuery(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root, "docs", []string{
		"the release process uses tagged builds",
		"unrelated text about lunch menus",
	})

	r := NewRegistry(root, fakeEmbed)
	results, err := r.Query(context.Background(), "docs", "release process", 2)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Query() returned %d results, want 2", len(results))
	}
	// Results come back best first.
	if results[0].Score < results[1].Score {
		t.Errorf("results not sorted by score: %v", results)
	}
}

func TestRegistryQueryClampsTopK(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root, "docs", []string{"only one document"})

	r := NewRegistry(root, fakeEmbed)
	results, err := r.Query(context.Background(), "docs", "anything", 20)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Query() returned %d results, want 1", len(results))
	}
}

func TestRegistryQueryMissingStore(t *testing.T) {
	r := NewRegistry(t.TempDir(), fakeEmbed)
	_, err := r.Query(context.Background(), "nope", "q", 5)
	var notFound *model.StoreNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Query() error = %v, want *StoreNotFoundError", err)
	}
}
