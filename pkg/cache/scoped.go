package cache

// ScopedKeyer wraps a Keyer with a prefix so that several consumers can
// share one backend without their entries colliding.
//
// Example usage:
//
//	// Keys written by the HTTP service
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
//
//	// Keys written by the CLI
//	cliKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(graphHash, opts)
}

// ExportKey generates a prefixed key for export caching.
func (k *ScopedKeyer) ExportKey(layoutHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(layoutHash, opts)
}
