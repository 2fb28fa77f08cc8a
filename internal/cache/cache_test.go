package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 16, 0)
	require.NoError(t, err)

	key := "https://api.example.test/repositories/acme?page=1"
	body := []byte(`{"values": []}`)

	_, ok := c.Get(key)
	assert.False(t, ok, "unseen key must be a miss")

	require.NoError(t, c.Put(key, body))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, body, got)
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir, 16, 0)
	require.NoError(t, err)
	require.NoError(t, first.Put("key", []byte("payload")))

	second, err := New(dir, 16, 0)
	require.NoError(t, err)

	got, ok := second.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 16, 0)
	require.NoError(t, err)

	require.NoError(t, c.Put("key", []byte("payload")))
	require.NoError(t, os.WriteFile(c.path("key"), []byte("not json"), 0o644))

	// A fresh instance has no memory front, so the corrupt file is read.
	fresh, err := New(dir, 16, 0)
	require.NoError(t, err)
	_, ok := fresh.Get("key")
	assert.False(t, ok)
}

func TestCache_KeyMismatchIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 16, 0)
	require.NoError(t, err)

	// An envelope stored under the file name of "key" but recording a
	// different key reads as a miss.
	foreign, err := json.Marshal(entry{Key: "other", Body: []byte("payload"), StoredAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path("key"), foreign, 0o644))

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestCache_ExpiredEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 16, time.Minute)
	require.NoError(t, err)

	stale, err := json.Marshal(entry{Key: "key", Body: []byte("payload"), StoredAt: time.Now().Add(-2 * time.Minute)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path("key"), stale, 0o644))

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 16, 0)
	require.NoError(t, err)

	old, err := json.Marshal(entry{Key: "key", Body: []byte("payload"), StoredAt: time.Now().Add(-24 * 365 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.path("key"), old, 0o644))

	_, ok := c.Get("key")
	assert.True(t, ok)
}

func TestCache_FileNameIsHashed(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 16, 0)
	require.NoError(t, err)

	key := "https://api.example.test/repositories/acme?q=created_on >= 2024-01-01"
	require.NoError(t, c.Put(key, []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
	assert.Len(t, entries[0].Name(), 64+len(".json"))
}
