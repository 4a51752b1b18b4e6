package agent

import (
	"github.com/banshee-data/godview/internal/adaptive"
	"github.com/banshee-data/godview/internal/evolution"
	"github.com/banshee-data/godview/internal/timeengine"
)

// epochAccumulator gathers the running sums an evolutionary step scores
// at the next epoch boundary ).
type epochAccumulator struct {
	positionErrorSum   float64
	positionErrorCount int

	peerUseful    int
	peerRedundant int
	peerWrong     int

	bytesSent float64
	ticks     int
}

func (e *epochAccumulator) recordPeerOutcome(o adaptive.Outcome) {
	switch o {
	case adaptive.OutcomeUseful:
		e.peerUseful++
	case adaptive.OutcomeRedundant:
		e.peerRedundant++
	case adaptive.OutcomeWrong:
		e.peerWrong++
	}
}

func (e *epochAccumulator) recordPositionError(err float64) {
	e.positionErrorSum += err
	e.positionErrorCount++
}

// peerAgreementCost is the fraction of gossip outcomes this epoch that
// were NOT a clean "useful" absorption: redundant traffic and outright
// contradictions both cost bandwidth and trust without advancing the
// world model, so both count against agreement.
func (e *epochAccumulator) peerAgreementCost() float64 {
	total := e.peerUseful + e.peerRedundant + e.peerWrong
	if total == 0 {
		return 0
	}
	return float64(e.peerRedundant+e.peerWrong) / float64(total)
}

func (e *epochAccumulator) avgPositionError() float64 {
	if e.positionErrorCount == 0 {
		return 0
	}
	return e.positionErrorSum / float64(e.positionErrorCount)
}

func (e *epochAccumulator) metrics(ticksElapsed uint64, startingEnergy, currentEnergy float64, filter *timeengine.Filter) evolution.Metrics {
	avgNIS := 0.0
	if filter != nil {
		avgNIS = filter.AverageNIS()
	}

	avgEnergyRemain := 1.0
	if startingEnergy > 0 {
		avgEnergyRemain = currentEnergy / startingEnergy
	}

	return evolution.Metrics{
		AvgPositionError: e.avgPositionError(),
		AvgNIS:           avgNIS,
		AvgPeerAgreement: e.peerAgreementCost(),
		BytesSentTotal:   e.bytesSent,
		TicksElapsed:     int(ticksElapsed),
		AvgEnergyRemain:  avgEnergyRemain,
	}
}
