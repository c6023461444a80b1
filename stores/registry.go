// Package stores provides the read-only registry of local vector stores.
//
// A store is a subdirectory of the configured root containing a chromem-go
// persisted database with a "documents" collection. The engine never creates
// or mutates stores; it only lists and queries them.
package stores

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/richinex/scriba/model"
)

// CollectionName is the collection each store keeps its documents in.
const CollectionName = "documents"

// Result is one retrieved chunk from a single store.
type Result struct {
	Content string
	Score   float32
}

// Embedder converts query text into the vector space of the stores.
type Embedder func(ctx context.Context, text string) ([]float32, error)

// Registry exposes the stores under a root directory. Safe for concurrent
// use; databases are opened lazily and cached.
type Registry struct {
	root  string
	embed Embedder

	mu  sync.Mutex
	dbs map[string]*chromem.DB
}

// NewRegistry creates a registry rooted at dir, using embed for query text.
func NewRegistry(root string, embed Embedder) *Registry {
	return &Registry{
		root:  root,
		embed: embed,
		dbs:   make(map[string]*chromem.DB),
	}
}

// Root returns the configured store root directory.
func (r *Registry) Root() string {
	return r.root
}

// List returns all stores under the root in name order.
func (r *Registry) List() ([]model.StoreInfo, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read store root: %w", err)
	}

	var infos []model.StoreInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		infos = append(infos, model.StoreInfo{
			Name:        entry.Name(),
			DisplayName: displayName(entry.Name()),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Has reports whether a store with the given name exists.
func (r *Registry) Has(name string) bool {
	if !validStoreName(name) {
		return false
	}
	info, err := os.Stat(filepath.Join(r.root, name))
	return err == nil && info.IsDir()
}

// Query embeds the query text and returns the topK most similar chunks from
// the named store, best first. A missing store yields *StoreNotFoundError.
func (r *Registry) Query(ctx context.Context, name, query string, topK int) ([]Result, error) {
	if !r.Has(name) {
		return nil, &model.StoreNotFoundError{Stores: []string{name}}
	}

	col, err := r.collection(ctx, name)
	if err != nil {
		return nil, err
	}
	if col == nil {
		// A store directory without a collection holds no documents.
		return nil, nil
	}

	// chromem rejects queries asking for more results than documents exist.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	embedding, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := col.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("store %q query failed: %w", name, err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{Content: h.Content, Score: h.Similarity})
	}
	return results, nil
}

// collection opens the store's database (cached) and returns its documents
// collection, or nil if the store is empty.
func (r *Registry) collection(ctx context.Context, name string) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.dbs[name]
	if !ok {
		var err error
		db, err = chromem.NewPersistentDB(filepath.Join(r.root, name), false)
		if err != nil {
			return nil, fmt.Errorf("failed to open store %q: %w", name, err)
		}
		r.dbs[name] = db
		slog.Debug("opened vector store", "store", name)
	}

	embedFunc := chromem.EmbeddingFunc(r.embed)
	if col := db.GetCollection(CollectionName, embedFunc); col != nil {
		return col, nil
	}

	// Fall back to the first collection for stores written under a
	// different collection name.
	for _, col := range db.ListCollections() {
		return col, nil
	}
	return nil, nil
}

// validStoreName rejects names that could escape the store root.
func validStoreName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}

// displayName turns a store identifier into a presentation label,
// e.g. "release_notes" -> "Release Notes".
func displayName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
