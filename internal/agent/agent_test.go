package agent

import (
	"crypto/ed25519"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/godview/internal/adaptive"
	"github.com/banshee-data/godview/internal/clock"
	"github.com/banshee-data/godview/internal/model"
	"github.com/banshee-data/godview/internal/trust"
)

func newTestAgent(t *testing.T) (*Agent, clock.Provider) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	provider := clock.NewSimProvider(42)
	revoked := trust.NewRevocationList()
	a := New(uuid.New(), DefaultConfig(), provider, trust.KeyPair{Public: pub, Private: priv}, revoked)
	return a, provider
}

func TestTick_DeadAgentIsNoOp(t *testing.T) {
	a, _ := newTestAgent(t)
	cfg := a.cfg
	cfg.StartingEnergy = 0
	cfg.IdleEnergyCostPerTick = 1
	a2 := New(uuid.New(), cfg, clock.NewSimProvider(1), a.keys, trust.NewRevocationList())

	res := a2.Tick(1.0/30, nil, nil, nil)
	require.False(t, res.Alive)

	res2 := a2.Tick(1.0/30, nil, nil, nil)
	require.False(t, res2.Alive)
}

func TestTick_LocalReadingCreatesTrack(t *testing.T) {
	a, _ := newTestAgent(t)
	reading := SensorReading{
		LocalID:  uuid.New(),
		Position: model.Vec3{X: 10, Y: 0, Z: 0},
		Velocity: model.Vec3{X: 1, Y: 0, Z: 0},
		ClassID:  1,
	}

	res := a.Tick(1.0/30, []SensorReading{reading}, nil, nil)
	require.True(t, res.Alive)
	require.Len(t, a.Tracks(), 1)
}

func TestTick_EnergyDecreasesWithReadings(t *testing.T) {
	a, _ := newTestAgent(t)
	before := a.Energy()

	reading := SensorReading{LocalID: uuid.New(), Position: model.Vec3{}, Velocity: model.Vec3{}}
	a.Tick(1.0/30, []SensorReading{reading}, nil, nil)

	require.Less(t, a.Energy(), before)
}

func TestTick_EpochBoundaryProducesFitness(t *testing.T) {
	a, _ := newTestAgent(t)
	cfg := a.cfg
	cfg.EpochLengthTicks = 1
	a2 := New(uuid.New(), cfg, clock.NewSimProvider(1), a.keys, trust.NewRevocationList())

	res := a2.Tick(1.0/30, nil, nil, nil)
	require.True(t, res.EpochFitnessSet)
}

func TestTick_GossipRejectedOnBadSignature(t *testing.T) {
	a, _ := newTestAgent(t)

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1}}
	wire := model.EncodePacket(packet)
	env := model.Envelope{Payload: wire} // zero signature, zero pubkey: invalid

	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: uuid.New()}}, nil)
	require.Equal(t, 1, res.PacketsRejected)
	require.Empty(t, a.Tracks())
}

func TestTick_GossipAcceptedOnGoodSignature(t *testing.T) {
	a, _ := newTestAgent(t)

	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1, Y: 2, Z: 3}}
	wire := model.EncodePacket(packet)
	env := trust.Sign(wire, trust.KeyPair{Public: senderPub, Private: senderPriv}, nil)

	neighborID := uuid.New()
	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: neighborID}}, nil)
	require.Equal(t, 0, res.PacketsRejected)
	require.Len(t, a.Tracks(), 1)
}

// newRelayTestAgent builds an agent with an immediate (every-tick)
// gossip interval so a single Tick call exercises emission.
func newRelayTestAgent(t *testing.T, configure func(*Config)) *Agent {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.InitialParams.GossipIntervalTicks = 1
	if configure != nil {
		configure(&cfg)
	}

	provider := clock.NewSimProvider(42)
	return New(uuid.New(), cfg, provider, trust.KeyPair{Public: pub, Private: priv}, trust.NewRevocationList())
}

func TestTick_GossipIsNotRelayedByDefault(t *testing.T) {
	a := newRelayTestAgent(t, nil)
	require.False(t, a.cfg.EnableRelay)

	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1, Y: 2, Z: 3}}
	wire := model.EncodePacket(packet)
	env := trust.Sign(wire, trust.KeyPair{Public: senderPub, Private: senderPriv}, nil)

	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: uuid.New()}}, []uuid.UUID{uuid.New()})
	require.Empty(t, a.forward)
	require.Empty(t, res.Outbound, "default config absorbs gossip into tracking but never re-broadcasts it")
}

func TestTick_GossipIsRelayedWithIncrementedHop(t *testing.T) {
	a := newRelayTestAgent(t, func(cfg *Config) { cfg.EnableRelay = true })

	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1, Y: 2, Z: 3}}
	wire := model.EncodePacket(packet)
	env := trust.Sign(wire, trust.KeyPair{Public: senderPub, Private: senderPriv}, nil)
	env.Hops = 2

	neighborID := uuid.New()
	otherNeighbor := uuid.New()
	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: neighborID}}, []uuid.UUID{otherNeighbor})

	require.Len(t, a.forward, 1)
	require.Equal(t, uint8(3), a.forward[0].Hops)
	require.Len(t, res.Outbound, 1)
	require.Equal(t, otherNeighbor, res.Outbound[0].To)
}

func TestTick_GossipAtMaxHopsIsAbsorbedNotRelayed(t *testing.T) {
	a := newRelayTestAgent(t, func(cfg *Config) {
		cfg.EnableRelay = true
		cfg.MaxHops = 2
	})

	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1, Y: 2, Z: 3}}
	wire := model.EncodePacket(packet)
	env := trust.Sign(wire, trust.KeyPair{Public: senderPub, Private: senderPriv}, nil)
	env.Hops = 2 // one more hop saturates past MaxHops

	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: uuid.New()}}, []uuid.UUID{uuid.New()})

	require.Empty(t, a.forward)
	require.Empty(t, res.Outbound)
	require.Len(t, a.Tracks(), 1, "packet is still absorbed into the tracking pipeline")
}

func TestTick_QuarantineSuppressesBadActorAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableQuarantine = true
	cfg.QuarantineTicks = 100
	provider := clock.NewSimProvider(7)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	a := New(uuid.New(), cfg, provider, trust.KeyPair{Public: pub, Private: priv}, trust.NewRevocationList())

	senderPub, senderPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	neighborID := uuid.New()

	// Force the neighbor into bad-actor territory directly: 20 wrong
	// outcomes crosses both the reliability floor and the sample count.
	for i := 0; i < 20; i++ {
		a.reputation.RecordAt(neighborID, adaptive.OutcomeWrong, a.tick)
	}
	require.NotEmpty(t, a.reputation.BadActors())

	packet := model.ObservationPacket{LocalID: uuid.New(), Position: model.Vec3{X: 1}}
	wire := model.EncodePacket(packet)
	env := trust.Sign(wire, trust.KeyPair{Public: senderPub, Private: senderPriv}, nil)

	res := a.Tick(1.0/30, nil, []Inbound{{Envelope: env, From: neighborID}}, nil)
	require.Equal(t, 1, res.PacketsFiltered)
}

func TestSelectNeighbors_CapsAtMax(t *testing.T) {
	entropy := clock.NewSeededEntropy(1)
	neighbors := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	got := selectNeighbors(neighbors, 2, entropy)
	require.Len(t, got, 2)
}

func TestSelectNeighbors_ReturnsAllWhenUnderMax(t *testing.T) {
	entropy := clock.NewSeededEntropy(1)
	neighbors := []uuid.UUID{uuid.New(), uuid.New()}
	got := selectNeighbors(neighbors, 5, entropy)
	require.Len(t, got, 2)
}
