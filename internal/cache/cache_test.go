package cache

import (
	"bytes"
	"testing"
	"time"

	"github.com/veracity-io/veracity/internal/model"
)

func TestEmbeddingKey_Stable(t *testing.T) {
	a := EmbeddingKey("text-embedding-3-small", "laksa is a soup")
	b := EmbeddingKey("text-embedding-3-small", "laksa is a soup")
	if a != b {
		t.Errorf("Same inputs gave different keys: %s != %s", a, b)
	}
}

func TestEmbeddingKey_DiscriminatesModelAndText(t *testing.T) {
	base := EmbeddingKey("model-a", "some text")
	if base == EmbeddingKey("model-b", "some text") {
		t.Error("Different models must not share keys")
	}
	if base == EmbeddingKey("model-a", "other text") {
		t.Error("Different texts must not share keys")
	}
	// The separator keeps (model, text) unambiguous.
	if EmbeddingKey("ab", "c") == EmbeddingKey("a", "bc") {
		t.Error("Key collides across the model/text boundary")
	}
}

func sameVector(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Empty cache reported a hit")
	}

	want := []float32{0.25, -1, 3.5}
	if err := c.Set("k", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found := c.Get("k")
	if !found || !sameVector(got, want) {
		t.Errorf("Get after Set: %v, %v", got, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Get after Delete reported a hit")
	}
}

func TestMemoryCache_EntryDoesNotAliasCaller(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	vec := []float32{1, 2, 3}
	if err := c.Set("k", vec, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	vec[0] = 99

	got, found := c.Get("k")
	if !found || got[0] != 1 {
		t.Errorf("Caller mutation leaked into the cached entry: %v", got)
	}
}

func TestDiskCache_SurvivesNewHandle(t *testing.T) {
	dir := t.TempDir()

	c := NewDiskCache(dir, time.Hour)
	if err := c.Set("k", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh handle over the same directory sees the entry.
	c2 := NewDiskCache(dir, time.Hour)
	got, found := c2.Get("k")
	if !found || !bytes.Equal(got, []byte("payload")) {
		t.Errorf("Fresh handle miss: %q, %v", got, found)
	}
}

func TestDiskCache_ExpiredEntryMisses(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("payload"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expired entry reported a hit")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	vec := []float32{0.5, -2, 4}

	// Seed only the disk tier with the encoded form.
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", model.EncodeVector(vec), time.Hour); err != nil {
		t.Fatalf("Seed disk: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	got, found := layered.Get("k")
	if !found || !sameVector(got, vec) {
		t.Fatalf("Disk-only entry not found through layered cache")
	}

	// After promotion the memory tier answers on its own.
	mem, ok := layered.memory.Get("k")
	if !ok || !sameVector(mem, vec) {
		t.Error("Disk hit was not promoted to memory")
	}
}

func TestLayeredCache_CorruptDiskEntryMisses(t *testing.T) {
	dir := t.TempDir()

	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte{1, 2, 3}, time.Hour); err != nil {
		t.Fatalf("Seed disk: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	if _, found := layered.Get("k"); found {
		t.Fatal("Undecodable entry reported a hit")
	}
	if _, found := disk.Get("k"); found {
		t.Error("Undecodable entry was not dropped from disk")
	}
}

func TestLayeredCache_DeleteRemovesBothTiers(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := layered.Set("k", []float32{1, 2}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := layered.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found := layered.Get("k"); found {
		t.Error("Entry survived Delete")
	}
	if _, found := NewDiskCache(dir, time.Hour).Get("k"); found {
		t.Error("Disk tier entry survived Delete")
	}
}
