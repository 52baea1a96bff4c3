package cache

// ScopedKeyer prefixes every key of an inner Keyer. The HTTP service uses
// it to keep its entries apart from CLI entries in a shared Redis.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "engrave:server:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ScoreKey generates a prefixed score key.
func (k *ScopedKeyer) ScoreKey(sourceHash string, opts ScoreKeyOpts) string {
	return k.prefix + k.inner.ScoreKey(sourceHash, opts)
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(scoreHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(scoreHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
