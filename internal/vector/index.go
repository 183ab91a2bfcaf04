// Package vector stores document chunks with embeddings and answers
// similarity queries, one logical collection per docset.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quizforge/internal/providers"
	"quizforge/internal/util"
)

var ErrDocsetRequired = errors.New("docset id is required")

const embedBatchSize = 64

// Metadata identifies where a chunk came from.
type Metadata struct {
	DocsetID string `json:"docset_id"`
	Source   string `json:"source"`
	Chunk    int    `json:"chunk"`
}

type Hit struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Dimension    int
}

// Collections hands out docset-scoped indexes over one shared store. Writers
// to the same docset are serialized; different docsets never contend.
type Collections struct {
	store    Store
	embedder providers.EmbeddingProvider
	opts     Options
	locks    keyedMutex
}

func NewCollections(store Store, embedder providers.EmbeddingProvider, opts Options) *Collections {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = util.DefaultChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = util.DefaultChunkOverlap
	}
	return &Collections{store: store, embedder: embedder, opts: opts}
}

// Index returns a handle bound to docsetID. A blank id is rejected.
func (c *Collections) Index(docsetID string) (*Index, error) {
	if err := requireDocset(docsetID); err != nil {
		return nil, err
	}
	return &Index{c: c, docsetID: docsetID}, nil
}

func (c *Collections) Close() error { return c.store.Close() }

// Index is a handle bound to one docset.
type Index struct {
	c        *Collections
	docsetID string
}

func (ix *Index) DocsetID() string { return ix.docsetID }

func (ix *Index) AddDocument(ctx context.Context, source, text string) (int, error) {
	return ix.c.AddDocument(ctx, ix.docsetID, source, text)
}

func (ix *Index) Query(ctx context.Context, question string, topK int) ([]Hit, error) {
	return ix.c.Query(ctx, ix.docsetID, question, topK)
}

func (ix *Index) GetAll(ctx context.Context, limit int) ([]string, []Metadata, error) {
	return ix.c.GetAll(ctx, ix.docsetID, limit)
}

func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.c.Count(ctx, ix.docsetID)
}

func (ix *Index) DeleteCollection(ctx context.Context) error {
	return ix.c.DeleteCollection(ctx, ix.docsetID)
}

func requireDocset(docsetID string) error {
	if strings.TrimSpace(docsetID) == "" {
		return ErrDocsetRequired
	}
	return nil
}

// AddDocument chunks text, embeds every chunk and upserts it under a stable
// id. Re-adding the same (source, text) rewrites the same rows.
func (c *Collections) AddDocument(ctx context.Context, docsetID, source, text string) (int, error) {
	if err := requireDocset(docsetID); err != nil {
		return 0, err
	}
	chunks := util.ChunkText(text, c.opts.ChunkSize, c.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, nil
	}
	unlock := c.locks.lock(docsetID)
	defer unlock()

	records := make([]Record, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		vecs, info, err := c.embedder.Embed(ctx, providers.EmbedRequest{
			Operation: "index_chunks",
			Inputs:    chunks[start:end],
			Dimension: c.opts.Dimension,
		})
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", source, err)
		}
		if len(vecs) != end-start {
			return 0, fmt.Errorf("embed %s: %s returned %d vectors for %d chunks", source, info.Name, len(vecs), end-start)
		}
		for i, vec := range vecs {
			ordinal := start + i
			records = append(records, Record{
				ID:        util.StableChunkID(docsetID, source, ordinal),
				DocsetID:  docsetID,
				Source:    source,
				Ordinal:   ordinal,
				Text:      chunks[ordinal],
				Embedding: vec,
			})
		}
	}
	if err := c.store.Upsert(ctx, records); err != nil {
		return 0, err
	}
	slog.Debug("indexed document", "docset_id", docsetID, "source", source, "chunks", len(records))
	return len(records), nil
}

// Query ranks the docset's chunks by similarity to question. Score is
// 1 - cosine distance, highest first.
func (c *Collections) Query(ctx context.Context, docsetID, question string, topK int) ([]Hit, error) {
	if err := requireDocset(docsetID); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	vecs, _, err := c.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "query",
		Inputs:    []string{question},
		Dimension: c.opts.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	matches, err := c.store.Query(ctx, docsetID, vecs[0], topK)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, Hit{ID: m.ID, Text: m.Text, Metadata: metadataOf(m.Record), Score: 1 - m.Distance})
	}
	return hits, nil
}

// GetAll returns the docset's chunk texts and metadata in (source, chunk)
// order. limit <= 0 returns everything.
func (c *Collections) GetAll(ctx context.Context, docsetID string, limit int) ([]string, []Metadata, error) {
	if err := requireDocset(docsetID); err != nil {
		return nil, nil, err
	}
	records, err := c.store.All(ctx, docsetID, limit)
	if err != nil {
		return nil, nil, err
	}
	texts := make([]string, 0, len(records))
	metas := make([]Metadata, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Text)
		metas = append(metas, metadataOf(r))
	}
	return texts, metas, nil
}

func (c *Collections) Count(ctx context.Context, docsetID string) (int, error) {
	if err := requireDocset(docsetID); err != nil {
		return 0, err
	}
	return c.store.Count(ctx, docsetID)
}

// DeleteCollection removes every chunk of the docset. It cannot be undone.
func (c *Collections) DeleteCollection(ctx context.Context, docsetID string) error {
	if err := requireDocset(docsetID); err != nil {
		return err
	}
	unlock := c.locks.lock(docsetID)
	defer unlock()
	return c.store.DeleteDocset(ctx, docsetID)
}

func metadataOf(r Record) Metadata {
	return Metadata{DocsetID: r.DocsetID, Source: r.Source, Chunk: r.Ordinal}
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*refMutex{}
	}
	m := k.locks[key]
	if m == nil {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
