package draw

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	divPrecision = 20
	rollDigits   = 15
	rollScale    = int64(1_000_000_000_000_000) // 10^rollDigits
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	sumTolerance = decimal.New(1, -12)

	// DefaultMinRetention é a fração mínima da probabilidade base que
	// qualquer prêmio mantém depois do ajuste de RTP
	DefaultMinRetention = decimal.New(1, -2)
)

// Policy controla a curva de ajuste entre o EV natural e o EV alvo
type Policy struct {
	MinRetention decimal.Decimal
}

type Option func(*Engine)

// WithMinRetention troca a retenção mínima; valores fora de (0,1) são ignorados
func WithMinRetention(d decimal.Decimal) Option {
	return func(e *Engine) {
		if d.IsPositive() && d.LessThan(one) {
			e.policy.MinRetention = d
		}
	}
}

// Engine sorteia prêmios. Não guarda estado mutável além da fonte de aleatoriedade.
type Engine struct {
	rng    RandomSource
	policy Policy
}

func New(rng RandomSource, opts ...Option) *Engine {
	if rng == nil {
		rng = CryptoSource{}
	}
	e := &Engine{rng: rng, policy: Policy{MinRetention: DefaultMinRetention}}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

// Entry é a linha de um prêmio na distribuição usada no sorteio
type Entry struct {
	PrizeID         string          `json:"prize_id"`
	Name            string          `json:"name"`
	Value           decimal.Decimal `json:"value"`
	BaseProbability decimal.Decimal `json:"base_probability"`
	Probability     decimal.Decimal `json:"probability"`
	Cumulative      decimal.Decimal `json:"cumulative"`
}

// Distribution registra as probabilidades efetivas de um sorteio.
// Deve ser persistida junto à abertura para auditoria e disputas.
type Distribution struct {
	CaseID     string          `json:"case_id"`
	Price      decimal.Decimal `json:"price"`
	RTPTarget  decimal.Decimal `json:"rtp_target"`
	TargetEV   decimal.Decimal `json:"target_ev"`
	NaturalEV  decimal.Decimal `json:"natural_ev"`
	ExpectedEV decimal.Decimal `json:"expected_ev"`
	Tilt       decimal.Decimal `json:"tilt"`
	Clamped    bool            `json:"clamped"`
	Entries    []Entry         `json:"entries"`
}

// Pick devolve o índice da primeira entrada cuja probabilidade acumulada
// excede roll. Se o arredondamento deixar roll fora de todos os intervalos,
// devolve a última entrada.
func (d Distribution) Pick(roll decimal.Decimal) int {
	for i, en := range d.Entries {
		if en.Cumulative.GreaterThan(roll) {
			return i
		}
	}
	return len(d.Entries) - 1
}

// Outcome é o resultado de um sorteio
type Outcome struct {
	Prize        Prize           `json:"prize"`
	Roll         decimal.Decimal `json:"roll"`
	Distribution Distribution    `json:"distribution"`
}

func (o Outcome) PrizeID() string { return o.Prize.ID }

// Distribution calcula as probabilidades que o sorteio usaria, sem sortear
func (e *Engine) Distribution(c Case, rtpTarget decimal.Decimal) (Distribution, error) {
	d, _, err := e.build(c, rtpTarget)
	return d, err
}

// Draw sorteia um prêmio da caixa respeitando os pesos e o RTP alvo (0..100)
func (e *Engine) Draw(c Case, rtpTarget decimal.Decimal) (Outcome, error) {
	d, prizes, err := e.build(c, rtpTarget)
	if err != nil {
		return Outcome{}, err
	}
	roll := e.roll()
	return Outcome{Prize: prizes[d.Pick(roll)], Roll: roll, Distribution: d}, nil
}

func (e *Engine) roll() decimal.Decimal {
	return decimal.New(e.rng.Int63n(rollScale), -rollDigits)
}

func (e *Engine) build(c Case, rtpTarget decimal.Decimal) (Distribution, []Prize, error) {
	if rtpTarget.IsNegative() || rtpTarget.GreaterThan(hundred) {
		return Distribution{}, nil, fmt.Errorf("%w: rtp target %s outside [0,100]", ErrInvalidConfiguration, rtpTarget)
	}
	if err := c.Validate(); err != nil {
		return Distribution{}, nil, err
	}

	// ordem fixa: valor crescente, empate pelo id
	prizes := c.Eligible()
	sort.SliceStable(prizes, func(i, j int) bool {
		if cmp := prizes[i].Value.Cmp(prizes[j].Value); cmp != 0 {
			return cmp < 0
		}
		return prizes[i].ID < prizes[j].ID
	})

	total := decimal.Zero
	for _, p := range prizes {
		total = total.Add(p.Weight)
	}

	base := make([]decimal.Decimal, len(prizes))
	natural := decimal.Zero
	for i, p := range prizes {
		base[i] = p.Weight.DivRound(total, divPrecision)
		if !base[i].IsPositive() {
			return Distribution{}, nil, fmt.Errorf("%w: prize %s weight too small relative to case total", ErrInvalidCaseState, p.ID)
		}
		natural = natural.Add(base[i].Mul(p.Value))
	}
	natural = natural.Round(divPrecision)

	target := c.Price.Mul(rtpTarget).DivRound(hundred, divPrecision)

	variance := decimal.Zero
	for i, p := range prizes {
		dev := p.Value.Sub(natural)
		variance = variance.Add(base[i].Mul(dev).Mul(dev))
	}
	variance = variance.Round(divPrecision)

	tilt, clamped := e.tilt(prizes, natural, target, variance)

	d := Distribution{
		CaseID:    c.ID,
		Price:     c.Price,
		RTPTarget: rtpTarget,
		TargetEV:  target,
		NaturalEV: natural,
		Tilt:      tilt,
		Clamped:   clamped,
		Entries:   make([]Entry, len(prizes)),
	}

	cum := decimal.Zero
	expected := decimal.Zero
	for i, p := range prizes {
		q := base[i].Mul(one.Add(tilt.Mul(p.Value.Sub(natural)))).Round(divPrecision)
		if !q.IsPositive() {
			return Distribution{}, nil, fmt.Errorf("%w: prize %s probability %s not positive", ErrArithmeticInvariant, p.ID, q)
		}
		cum = cum.Add(q)
		expected = expected.Add(q.Mul(p.Value))
		d.Entries[i] = Entry{
			PrizeID:         p.ID,
			Name:            p.Name,
			Value:           p.Value,
			BaseProbability: base[i],
			Probability:     q,
			Cumulative:      cum,
		}
	}
	if cum.Sub(one).Abs().GreaterThan(sumTolerance) {
		return Distribution{}, nil, fmt.Errorf("%w: probabilities sum to %s", ErrArithmeticInvariant, cum)
	}
	d.ExpectedEV = expected.Round(divPrecision)

	return d, prizes, nil
}

// tilt calcula o coeficiente β de q_i = p_i (1 + β (v_i - E0)).
// Com β = (T - E0) / Var a soma continua 1 e o EV vira T.
// Cada fator precisa ficar >= MinRetention; fora disso β é limitado.
func (e *Engine) tilt(prizes []Prize, natural, target, variance decimal.Decimal) (decimal.Decimal, bool) {
	if target.Equal(natural) {
		return decimal.Zero, false
	}
	if !variance.IsPositive() {
		// todos os valores iguais: nenhuma redistribuição muda o EV
		return decimal.Zero, true
	}

	beta := target.Sub(natural).DivRound(variance, divPrecision)
	slack := one.Sub(e.policy.MinRetention)

	minV, maxV := prizes[0].Value, prizes[len(prizes)-1].Value
	if beta.IsPositive() {
		dist := natural.Sub(minV)
		if !dist.IsPositive() {
			return beta, false
		}
		if bound := slack.DivRound(dist, divPrecision); beta.GreaterThan(bound) {
			return bound, true
		}
		return beta, false
	}

	dist := maxV.Sub(natural)
	if !dist.IsPositive() {
		return beta, false
	}
	if bound := slack.Neg().DivRound(dist, divPrecision); beta.LessThan(bound) {
		return bound, true
	}
	return beta, false
}
