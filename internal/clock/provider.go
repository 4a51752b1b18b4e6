package clock

// Provider bundles the clock and entropy source an agent depends on.
// Production agents bind a RealProvider; the simulation harness binds a
// SimProvider constructed from a single seed, so that every timestamp
// and every random draw downstream is reproducible.
type Provider interface {
	Clock
	Entropy
}

// RealProvider binds to the OS clock and CSPRNG.
type RealProvider struct {
	RealClock
	RealEntropy
}

// NewRealProvider constructs a production Provider.
func NewRealProvider() *RealProvider {
	return &RealProvider{}
}

// SimProvider binds to a virtual clock and a seeded entropy stream. All
// SimProvider state is a pure function of the seed and the sequence of
// Advance calls made by the simulation harness scheduler.
type SimProvider struct {
	*SimClock
	*SeededEntropy
}

// NewSimProvider constructs a deterministic Provider from seed, with the
// virtual clock starting at the Unix epoch.
func NewSimProvider(seed uint64) *SimProvider {
	return &SimProvider{
		SimClock:      NewSimClock(epoch),
		SeededEntropy: NewSeededEntropy(seed),
	}
}
