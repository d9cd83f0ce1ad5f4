// Package index provides an in-process inverted-file (IVF) vector index
// with cosine similarity search, partitioned by tenant and entity type.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/veracity-io/veracity/internal/model"
)

// ErrDimensionMismatch is returned when a stored or query vector does not
// match the configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is a single similarity search result.
type Hit struct {
	EntityID   string
	Similarity float64
}

// Index partitions vectors into clusters per (tenant, entity type). A
// query visits only the probe-budget nearest clusters by centroid
// similarity, then exhaustively scores their members. Readers proceed
// concurrently; upserts take the write lock so a vector is never reachable
// from two clusters at once.
type Index struct {
	mu            sync.RWMutex
	dim           int
	lists         int
	defaultProbes int
	parts         map[partKey]*partition
}

type partKey struct {
	tenant string
	entity model.EntityType
}

type partition struct {
	clusters []*cluster
	loc      map[string]int // entity id -> cluster index
}

// cluster keeps the per-dimension component sum as its centroid. Cosine
// similarity is scale-invariant, so the sum ranks identically to the mean
// and removal stays exact.
type cluster struct {
	sum  []float64
	ids  []string
	vecs [][]float32
}

// New creates an index for vectors of the given dimension. lists is the
// cluster count per partition; probes the default probe budget for queries
// that do not specify one.
func New(dim, lists, probes int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if lists <= 0 {
		lists = 1
	}
	if probes <= 0 || probes > lists {
		probes = lists
	}
	return &Index{
		dim:           dim,
		lists:         lists,
		defaultProbes: probes,
		parts:         make(map[partKey]*partition),
	}, nil
}

// Dimension returns the configured vector dimension.
func (x *Index) Dimension() int {
	return x.dim
}

// Tuning returns the current lists and default probe budget.
func (x *Index) Tuning() (lists, probes int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.lists, x.defaultProbes
}

// SetTuning changes lists and the default probe budget at runtime. A lists
// change reclusters every partition; entries are reassigned in ascending
// id order so the resulting layout is reproducible.
func (x *Index) SetTuning(lists, probes int) error {
	if lists <= 0 {
		return fmt.Errorf("lists must be positive, got %d", lists)
	}
	if probes <= 0 || probes > lists {
		probes = lists
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if lists == x.lists {
		x.defaultProbes = probes
		return nil
	}
	x.lists = lists
	x.defaultProbes = probes
	for key, part := range x.parts {
		rebuilt := &partition{loc: make(map[string]int, len(part.loc))}
		ids := make([]string, 0, len(part.loc))
		byID := make(map[string][]float32, len(part.loc))
		for _, c := range part.clusters {
			for i, id := range c.ids {
				ids = append(ids, id)
				byID[id] = c.vecs[i]
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			x.insertLocked(rebuilt, id, byID[id])
		}
		x.parts[key] = rebuilt
	}
	return nil
}

// Size returns the total number of stored vectors.
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, part := range x.parts {
		n += len(part.loc)
	}
	return n
}

// Upsert stores or replaces the vector for (entityType, entityID) within
// the tenant's partition. Replacement removes the old entry and inserts
// the new one under a single lock, so no intermediate state is observable.
func (x *Index) Upsert(entityType model.EntityType, entityID string, vector []float32, tenantID string) error {
	if !entityType.Valid() {
		return fmt.Errorf("unknown entity type %q", entityType)
	}
	if entityID == "" {
		return fmt.Errorf("entity id must not be empty")
	}
	if len(vector) != x.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), x.dim)
	}

	vec := make([]float32, x.dim)
	copy(vec, vector)

	x.mu.Lock()
	defer x.mu.Unlock()

	key := partKey{tenant: tenantID, entity: entityType}
	part, ok := x.parts[key]
	if !ok {
		part = &partition{loc: make(map[string]int)}
		x.parts[key] = part
	}

	if ci, exists := part.loc[entityID]; exists {
		part.clusters[ci].remove(entityID)
		delete(part.loc, entityID)
	}
	x.insertLocked(part, entityID, vec)
	return nil
}

// insertLocked assigns a vector to a cluster. New clusters are opened until
// the partition reaches the lists budget; after that the nearest centroid
// wins, ties resolving to the lowest cluster index.
func (x *Index) insertLocked(part *partition, entityID string, vec []float32) {
	var target int
	if len(part.clusters) < x.lists {
		part.clusters = append(part.clusters, &cluster{sum: make([]float64, x.dim)})
		target = len(part.clusters) - 1
	} else {
		best := math.Inf(-1)
		for i, c := range part.clusters {
			sim := cosineSum(c.sum, vec)
			if sim > best {
				best = sim
				target = i
			}
		}
	}
	c := part.clusters[target]
	c.ids = append(c.ids, entityID)
	c.vecs = append(c.vecs, vec)
	for i, v := range vec {
		c.sum[i] += float64(v)
	}
	part.loc[entityID] = target
}

func (c *cluster) remove(entityID string) {
	for i, id := range c.ids {
		if id != entityID {
			continue
		}
		for j, v := range c.vecs[i] {
			c.sum[j] -= float64(v)
		}
		last := len(c.ids) - 1
		c.ids[i] = c.ids[last]
		c.vecs[i] = c.vecs[last]
		c.ids = c.ids[:last]
		c.vecs = c.vecs[:last]
		return
	}
}

// Query returns at most k hits ordered by descending cosine similarity,
// ties broken by ascending entity id. probeBudget limits how many clusters
// are visited; zero or negative falls back to the configured default. An
// empty index or unknown tenant yields an empty result, not an error.
func (x *Index) Query(vector []float32, entityType model.EntityType, tenantID string, k, probeBudget int) ([]Hit, error) {
	if len(vector) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	part, ok := x.parts[partKey{tenant: tenantID, entity: entityType}]
	if !ok || len(part.loc) == 0 {
		return nil, nil
	}

	if probeBudget <= 0 {
		probeBudget = x.defaultProbes
	}
	if probeBudget > len(part.clusters) {
		probeBudget = len(part.clusters)
	}

	// Rank clusters by centroid similarity; ties by cluster index so a
	// larger probe budget always visits a superset of clusters.
	order := make([]int, len(part.clusters))
	sims := make([]float64, len(part.clusters))
	for i, c := range part.clusters {
		order[i] = i
		sims[i] = cosineSum(c.sum, vector)
	}
	sort.SliceStable(order, func(a, b int) bool {
		if sims[order[a]] != sims[order[b]] {
			return sims[order[a]] > sims[order[b]]
		}
		return order[a] < order[b]
	})

	var hits []Hit
	for _, ci := range order[:probeBudget] {
		c := part.clusters[ci]
		for i, id := range c.ids {
			hits = append(hits, Hit{EntityID: id, Similarity: Cosine(c.vecs[i], vector)})
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].EntityID < hits[b].EntityID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine returns cosine similarity between two vectors, 0 when either has
// zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func cosineSum(sum []float64, q []float32) float64 {
	var dot, ns, nq float64
	for i := range sum {
		dot += sum[i] * float64(q[i])
		ns += sum[i] * sum[i]
		nq += float64(q[i]) * float64(q[i])
	}
	if ns == 0 || nq == 0 {
		return 0
	}
	return dot / (math.Sqrt(ns) * math.Sqrt(nq))
}
