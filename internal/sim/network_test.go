package sim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/godview/internal/agent"
	"github.com/banshee-data/godview/internal/clock"
	"github.com/banshee-data/godview/internal/model"
)

func grid3x3() []uuid.UUID {
	ids := make([]uuid.UUID, 9)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestNetwork_CenterCellHasEightNeighbors(t *testing.T) {
	ids := grid3x3()
	n := NewNetwork(ids, 3, 3, NewLinkController(0, 1), clock.NewSeededEntropy(1))

	require.Len(t, n.Neighbors(ids[4]), 8)
}

func TestNetwork_CornerCellHasThreeNeighbors(t *testing.T) {
	ids := grid3x3()
	n := NewNetwork(ids, 3, 3, NewLinkController(0, 1), clock.NewSeededEntropy(1))

	require.Len(t, n.Neighbors(ids[0]), 3)
}

func TestNetwork_PartitionRemovesAdjacencyBothDirections(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0, 1)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(1))

	controller.Partition(ids[4], ids[0])
	require.NotContains(t, n.Neighbors(ids[4]), ids[0])
	require.NotContains(t, n.Neighbors(ids[0]), ids[4])
}

func TestNetwork_HealRestoresAdjacency(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0, 1)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(1))

	controller.Partition(ids[4], ids[0])
	controller.Heal(ids[4], ids[0])
	require.Contains(t, n.Neighbors(ids[4]), ids[0])
}

func TestNetwork_SendThenTickDeliversAfterLatency(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0, 2)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(1))

	env := model.Envelope{Payload: []byte("hello")}
	n.Send(ids[0], ids[1], agent.Outbound{Envelope: env, To: ids[1]})

	n.Tick()
	require.Empty(t, n.Take(ids[1]))

	n.Tick()
	got := n.Take(ids[1])
	require.Len(t, got, 1)
	require.Equal(t, ids[0], got[0].From)
}

func TestNetwork_PartitionedSendIsDropped(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0, 1)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(1))
	controller.Partition(ids[0], ids[1])

	n.Send(ids[0], ids[1], agent.Outbound{To: ids[1]})
	n.Tick()

	require.Empty(t, n.Take(ids[1]))
	dropped, attempted := n.DropStats()
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, attempted)
}

func TestNetwork_LossRateIsApproximatelyObserved(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0.5, 0)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(99))

	for i := 0; i < 2000; i++ {
		n.Send(ids[0], ids[1], agent.Outbound{To: ids[1]})
	}

	dropped, attempted := n.DropStats()
	rate := float64(dropped) / float64(attempted)
	require.InDelta(t, 0.5, rate, 0.05)
}

func TestNetwork_TakeDrainsInbox(t *testing.T) {
	ids := grid3x3()
	controller := NewLinkController(0, 0)
	n := NewNetwork(ids, 3, 3, controller, clock.NewSeededEntropy(1))

	n.Send(ids[0], ids[1], agent.Outbound{To: ids[1]})
	n.Tick()

	require.Len(t, n.Take(ids[1]), 1)
	require.Empty(t, n.Take(ids[1]))
}
