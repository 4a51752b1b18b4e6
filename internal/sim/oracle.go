package sim

import (
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/godview/internal/clock"
	"github.com/banshee-data/godview/internal/model"
)

// NoiseModel names the distribution the oracle samples sensor noise
// from. Represented as a tagged variant rather
// than a polymorphic interface hierarchy.
type NoiseModel int

const (
	NoiseGaussian NoiseModel = iota
	NoiseCauchy
)

// Oracle owns ground-truth entities and produces noisy sensor readings
// from them. All randomness is drawn from the harness entropy stream so
// a run is reproducible from its seed.
type Oracle struct {
	entities   map[uuid.UUID]*model.Entity
	order      []uuid.UUID // insertion order, for deterministic iteration
	noise      NoiseModel
	noiseScale func(tSeconds float64) float64
	entropy    clock.Entropy
}

// NewOracle constructs an Oracle using entropy for noise sampling and a
// constant noise scale (override with SetNoiseScale for time-varying
// scenarios).
func NewOracle(entropy clock.Entropy, noise NoiseModel, scale float64) *Oracle {
	return &Oracle{
		entities:   make(map[uuid.UUID]*model.Entity),
		noise:      noise,
		noiseScale: func(float64) float64 { return scale },
		entropy:    entropy,
	}
}

// SetNoiseScale installs a time-varying noise scale function.
func (o *Oracle) SetNoiseScale(fn func(tSeconds float64) float64) {
	o.noiseScale = fn
}

// Spawn registers a new ground-truth entity and returns it.
func (o *Oracle) Spawn(id uuid.UUID, pos, vel model.Vec3, class string) *model.Entity {
	e := &model.Entity{ID: id, Position: pos, Velocity: vel, Class: class, Active: true, Confidence: 1}
	o.entities[id] = e
	o.order = append(o.order, id)
	return e
}

// Entities returns every active ground-truth entity in spawn order.
func (o *Oracle) Entities() []*model.Entity {
	out := make([]*model.Entity, 0, len(o.order))
	for _, id := range o.order {
		if e := o.entities[id]; e != nil && e.Active {
			out = append(out, e)
		}
	}
	return out
}

// Step advances every active entity by dtSeconds, each along its own velocity.
func (o *Oracle) Step(dtSeconds float64) {
	for _, id := range o.order {
		if e := o.entities[id]; e != nil && e.Active {
			e.Step(dtSeconds)
		}
	}
}

// Deactivate marks id inactive; it stops advancing and stops appearing
// in Entities/Sense.
func (o *Oracle) Deactivate(id uuid.UUID) {
	if e, ok := o.entities[id]; ok {
		e.Active = false
	}
}

// Sense produces one noisy reading per active entity at the given
// simulated time, suitable for feeding directly to an agent's Tick.
func (o *Oracle) Sense(tSeconds float64) map[uuid.UUID]model.Vec3 {
	scale := o.noiseScale(tSeconds)
	out := make(map[uuid.UUID]model.Vec3, len(o.order))
	for _, id := range o.order {
		e := o.entities[id]
		if e == nil || !e.Active {
			continue
		}
		out[id] = model.Vec3{
			X: e.Position.X + o.sample(scale),
			Y: e.Position.Y + o.sample(scale),
			Z: e.Position.Z + o.sample(scale),
		}
	}
	return out
}

// Velocity returns id's true velocity, zero if id is unknown.
func (o *Oracle) Velocity(id uuid.UUID) model.Vec3 {
	if e, ok := o.entities[id]; ok {
		return e.Velocity
	}
	return model.Vec3{}
}

// PositionError returns the Euclidean distance between id's true
// position and estimated, 0 if id is unknown (used by the Oracle
// fitness provider's avg_position_error input).
func (o *Oracle) PositionError(id uuid.UUID, estimated model.Vec3) float64 {
	e, ok := o.entities[id]
	if !ok {
		return 0
	}
	d := e.Position.Sub(estimated)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

func (o *Oracle) sample(scale float64) float64 {
	src := entropySource{o.entropy}
	switch o.noise {
	case NoiseCauchy:
		d := distuv.Cauchy{Location: 0, Scale: scale, Src: src}
		return d.Rand()
	default:
		d := distuv.Normal{Mu: 0, Sigma: scale, Src: src}
		return d.Rand()
	}
}

// entropySource adapts the harness's clock.Entropy onto the
// math/rand.Source interface gonum's distuv samplers expect, so
// sensor-noise sampling draws from the same seeded stream as every
// other random decision in a run.
type entropySource struct{ e clock.Entropy }

func (s entropySource) Int63() int64 { return int64(s.e.Uint64() >> 1) }
func (s entropySource) Seed(int64)   {}
