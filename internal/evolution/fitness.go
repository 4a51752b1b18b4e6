package evolution

// Metrics is the per-epoch aggregate an optimizer scores ).
type Metrics struct {
	AvgPositionError float64 // oracle mode only; 0 if unavailable
	AvgNIS           float64
	AvgPeerAgreement float64
	BytesSentTotal   float64
	TicksElapsed     int
	AvgEnergyRemain  float64 // fraction of starting energy, [0,1]
}

// messagesPerTick returns bytes sent per tick (BytesSentTotal divided by
// TicksElapsed), so fitness does not depend on epoch duration. Metrics
// carries no message count: the Oracle provider's messaging term and
// the Blind provider's bandwidth term both use this byte rate.
func (m Metrics) messagesPerTick() float64 {
	if m.TicksElapsed == 0 {
		return 0
	}
	return m.BytesSentTotal / float64(m.TicksElapsed)
}

// EnergyPenalty returns how far average remaining energy has fallen
// below full, in [0,1]: 0 at full energy, 1 at none.
func (m Metrics) EnergyPenalty() float64 {
	if m.AvgEnergyRemain >= 1 {
		return 0
	}
	if m.AvgEnergyRemain <= 0 {
		return 1
	}
	return 1 - m.AvgEnergyRemain
}

// Provider computes a fitness score from a completed epoch's metrics.
// OracleProvider and BlindProvider are its two implementations; the
// optimizer holds a Provider and calls Fitness through this interface.
type Provider interface {
	Fitness(m Metrics) float64
}

// OracleProvider scores against ground-truth position error, available
// only in simulation where the harness retains entity truth.
type OracleProvider struct{}

// Fitness implements Provider.
func (OracleProvider) Fitness(m Metrics) float64 {
	f := 100.0/(m.AvgPositionError+0.1) - 0.5*m.messagesPerTick()
	if m.EnergyPenalty() > 0.9 {
		f *= 0.1
	}
	return f
}

// BlindWeights are the Blind provider's cost weights ).
type BlindWeights struct {
	NIS          float64
	PeerAgree    float64
	BytesPerTick float64
	Energy       float64
}

// DefaultBlindWeights returns the spec's default weight set.
func DefaultBlindWeights() BlindWeights {
	return BlindWeights{NIS: 1, PeerAgree: 1, BytesPerTick: 0.001, Energy: 100}
}

// BlindProvider scores using only locally observable signals: filter
// consistency (NIS) and peer agreement, never ground truth. Because
// both correlate with true accuracy, optimizing against them still
// reduces error even without an oracle.
type BlindProvider struct {
	Weights BlindWeights
}

// NewBlindProvider constructs a BlindProvider with the default weights.
func NewBlindProvider() BlindProvider {
	return BlindProvider{Weights: DefaultBlindWeights()}
}

// Fitness implements Provider.
func (p BlindProvider) Fitness(m Metrics) float64 {
	w := p.Weights
	denom := 1 + w.NIS*m.AvgNIS + w.PeerAgree*m.AvgPeerAgreement +
		w.BytesPerTick*m.messagesPerTick() + w.Energy*m.EnergyPenalty()
	return 100.0 / denom
}
