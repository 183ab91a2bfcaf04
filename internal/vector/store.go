package vector

import (
	"context"
	"math"
	"sort"
)

// Record is one persisted chunk.
type Record struct {
	ID        string
	DocsetID  string
	Source    string
	Ordinal   int
	Text      string
	Embedding []float32
}

// Match is a record with its cosine distance to the query vector.
type Match struct {
	Record
	Distance float64
}

// Store persists records partitioned by docset id. Implementations must
// upsert by Record.ID and never return records of another docset.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, docsetID string, vec []float32, topK int) ([]Match, error)
	// All returns records ordered by (source, ordinal); limit <= 0 means no limit.
	All(ctx context.Context, docsetID string, limit int) ([]Record, error)
	Count(ctx context.Context, docsetID string) (int, error)
	DeleteDocset(ctx context.Context, docsetID string) error
	Close() error
}

func cosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// rankByDistance scores records against vec and keeps the topK closest.
func rankByDistance(records []Record, vec []float32, topK int) []Match {
	out := make([]Match, 0, len(records))
	for _, r := range records {
		out = append(out, Match{Record: r, Distance: cosineDistance(vec, r.Embedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Source != records[j].Source {
			return records[i].Source < records[j].Source
		}
		return records[i].Ordinal < records[j].Ordinal
	})
}
