package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyProvider_SameSeedSameAgentProducesIdenticalKeys(t *testing.T) {
	p1 := NewKeyProvider(42)
	p2 := NewKeyProvider(42)

	pub1, priv1 := p1.KeyFor(7)
	pub2, priv2 := p2.KeyFor(7)

	require.Equal(t, pub1, pub2)
	require.Equal(t, priv1, priv2)
}

func TestKeyProvider_DifferentAgentsProduceDifferentKeys(t *testing.T) {
	p := NewKeyProvider(42)

	pub1, _ := p.KeyFor(1)
	pub2, _ := p.KeyFor(2)

	require.NotEqual(t, pub1, pub2)
}

func TestKeyProvider_DifferentSeedsProduceDifferentKeys(t *testing.T) {
	p1 := NewKeyProvider(1)
	p2 := NewKeyProvider(2)

	pub1, _ := p1.KeyFor(7)
	pub2, _ := p2.KeyFor(7)

	require.NotEqual(t, pub1, pub2)
}

func TestKeyProvider_CachesAcrossCalls(t *testing.T) {
	p := NewKeyProvider(42)

	_, priv1 := p.KeyFor(3)
	_, priv2 := p.KeyFor(3)

	require.Equal(t, priv1, priv2)
}
