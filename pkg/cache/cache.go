// Package cache stores computed layouts and exports keyed by content hash.
//
// Three backends implement [Cache]: [FileCache] for the CLI (one file per
// entry under the user cache directory), [RedisCache] for the HTTP service
// and [NullCache] when caching is disabled. Keys come from a [Keyer] so the
// same inputs always map to the same entry; [ScopedKeyer] namespaces keys
// when several consumers share one backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// TTLs for cached entries. Layouts are pure functions of their inputs, so
// entries only expire to bound disk and memory use.
const (
	TTLLayout = 7 * 24 * time.Hour
	TTLExport = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiry.
//
// Get reports a miss as (nil, false, nil); a non-nil error means the
// backend itself failed. A ttl of zero stores the entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// LayoutKey returns the key for a layout of the graph whose canonical
	// JSON hashes to graphHash.
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	// ExportKey returns the key for an export of a layout.
	ExportKey(layoutHash string, opts ExportKeyOpts) string
}

// LayoutKeyOpts holds every option that changes a layout.
type LayoutKeyOpts struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	NodeSpacing float64 `json:"node_spacing"`
	RankSpacing float64 `json:"rank_spacing"`
	Margin      float64 `json:"margin"`
	MaxPasses   int     `json:"max_passes"`
}

// ExportKeyOpts holds every option that changes an export.
type ExportKeyOpts struct {
	Format  string `json:"format"`
	Dummies bool   `json:"dummies,omitempty"`
}

// DefaultKeyer hashes key options with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// LayoutKey implements [Keyer]. Keys look like "layout:<sha256>".
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return digestKey("layout", graphHash, opts)
}

// ExportKey implements [Keyer]. Keys look like "export:<sha256>".
func (DefaultKeyer) ExportKey(layoutHash string, opts ExportKeyOpts) string {
	return digestKey("export", layoutHash, opts)
}

// digestKey hashes the content hash together with the JSON form of its key
// options. The option structs have fixed field order, so equal options
// always encode to the same bytes.
func digestKey(kind, contentHash string, opts any) string {
	payload, _ := json.Marshal(struct {
		Hash string `json:"hash"`
		Opts any    `json:"opts"`
	}{contentHash, opts})
	return kind + ":" + Hash(payload)
}

// Hash returns the hex SHA-256 of data. Graph and layout hashes passed to
// a [Keyer] are computed with it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NullCache disables caching: every layout and export lookup misses and
// nothing is written. The CLI uses it for --no-cache and the server when
// no Redis URL is configured.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a [NullCache].
func NewNullCache() Cache { return &NullCache{} }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
