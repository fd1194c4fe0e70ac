package draw

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SimulationReport resume n sorteios de uma mesma caixa
type SimulationReport struct {
	Draws        int             `json:"draws"`
	Counts       map[string]int  `json:"counts"`
	TotalWagered decimal.Decimal `json:"total_wagered"`
	TotalPayout  decimal.Decimal `json:"total_payout"`
	MeanPayout   decimal.Decimal `json:"mean_payout"`
	RealizedRTP  decimal.Decimal `json:"realized_rtp"` // percentual
	Distribution Distribution    `json:"distribution"`
}

// Simulate executa n sorteios sobre uma única distribuição.
// Usa a mesma fonte de aleatoriedade e o mesmo caminho de Pick que Draw.
func (e *Engine) Simulate(c Case, rtpTarget decimal.Decimal, n int) (SimulationReport, error) {
	if n <= 0 {
		return SimulationReport{}, fmt.Errorf("%w: draws must be positive, got %d", ErrInvalidConfiguration, n)
	}
	d, prizes, err := e.build(c, rtpTarget)
	if err != nil {
		return SimulationReport{}, err
	}

	rep := SimulationReport{
		Draws:        n,
		Counts:       make(map[string]int, len(prizes)),
		Distribution: d,
	}
	for _, p := range prizes {
		rep.Counts[p.ID] = 0
	}

	payout := decimal.Zero
	for i := 0; i < n; i++ {
		p := prizes[d.Pick(e.roll())]
		rep.Counts[p.ID]++
		payout = payout.Add(p.Value)
	}

	draws := decimal.NewFromInt(int64(n))
	rep.TotalWagered = c.Price.Mul(draws)
	rep.TotalPayout = payout
	rep.MeanPayout = payout.DivRound(draws, divPrecision)
	rep.RealizedRTP = payout.Mul(hundred).DivRound(rep.TotalWagered, 4)
	return rep, nil
}

// Frequency devolve a fração observada de um prêmio
func (r SimulationReport) Frequency(prizeID string) float64 {
	if r.Draws == 0 {
		return 0
	}
	return float64(r.Counts[prizeID]) / float64(r.Draws)
}
