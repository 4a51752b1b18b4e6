package spaceengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOctree_InsertAndQueryFindsPoint(t *testing.T) {
	tr := newOctree()
	require.NoError(t, tr.insert(1, [3]uint16{32768, 32768, 32768}))

	var out []octreePoint
	tr.query([3]int32{32768, 32768, 32768}, 100, &out)
	require.Len(t, out, 1)
	require.Equal(t, uint32(1), out[0].id)
}

func TestOctree_QueryBeyondRadiusIsEmpty(t *testing.T) {
	tr := newOctree()
	require.NoError(t, tr.insert(1, [3]uint16{0, 0, 0}))

	var out []octreePoint
	tr.query([3]int32{65535, 65535, 65535}, 10, &out)
	require.Empty(t, out)
}

func TestOctree_RemoveDropsPoint(t *testing.T) {
	tr := newOctree()
	pos := [3]uint16{1000, 1000, 1000}
	require.NoError(t, tr.insert(1, pos))
	require.True(t, tr.remove(1, pos))

	var out []octreePoint
	tr.query([3]int32{1000, 1000, 1000}, 1000, &out)
	require.Empty(t, out)
}

func TestOctree_SplitsPastLeafCapacity(t *testing.T) {
	tr := newOctree()
	for i := 0; i < octreeLeafCapacity+4; i++ {
		pos := [3]uint16{uint16(1000 + i*3000), uint16(1000 + i*3000), uint16(1000 + i*3000)}
		require.NoError(t, tr.insert(uint32(i), pos))
	}
	require.NotNil(t, tr.root.children)
}

func TestQuantize_ClampsOutOfRangeValues(t *testing.T) {
	require.Equal(t, uint16(0), quantize(-5000))
	require.Equal(t, uint16(65535), quantize(5000))
	require.InDelta(t, 32767, int(quantize(0)), 1)
}
