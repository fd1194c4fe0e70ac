package draw

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func prize(id, value, weight string) Prize {
	return Prize{ID: id, Name: id, Value: d(value), Weight: d(weight), Active: true}
}

func mustCase(t *testing.T, price string, prizes ...Prize) Case {
	t.Helper()
	c, err := NewCase("case-1", "Test Case", d(price), true, prizes)
	require.NoError(t, err)
	return c
}

func probOf(t *testing.T, dist Distribution, id string) decimal.Decimal {
	t.Helper()
	for _, en := range dist.Entries {
		if en.PrizeID == id {
			return en.Probability
		}
	}
	t.Fatalf("prize %s not in distribution", id)
	return decimal.Zero
}

func TestWeightFidelity(t *testing.T) {
	// EV natural = 0.25*0 + 0.25*20 + 0.5*10 = 10 = preço, logo RTP 100 não inclina
	c := mustCase(t, "10.00",
		prize("a", "0", "1"),
		prize("b", "20", "1"),
		prize("c", "10", "2"),
	)
	e := New(NewSeededSource(7))

	rep, err := e.Simulate(c, d("100"), 100_000)
	require.NoError(t, err)

	assert.True(t, rep.Distribution.Tilt.IsZero())
	assert.InDelta(t, 0.25, rep.Frequency("a"), 0.01)
	assert.InDelta(t, 0.25, rep.Frequency("b"), 0.01)
	assert.InDelta(t, 0.50, rep.Frequency("c"), 0.01)
}

func TestWeightFidelityEqualValues(t *testing.T) {
	c := mustCase(t, "10.00",
		prize("a", "10", "1"),
		prize("b", "10", "1"),
		prize("c", "10", "2"),
	)
	e := New(NewSeededSource(11))

	rep, err := e.Simulate(c, d("100"), 100_000)
	require.NoError(t, err)

	assert.False(t, rep.Distribution.Clamped)
	assert.InDelta(t, 0.25, rep.Frequency("a"), 0.01)
	assert.InDelta(t, 0.25, rep.Frequency("b"), 0.01)
	assert.InDelta(t, 0.50, rep.Frequency("c"), 0.01)
}

func TestPayoutConvergence(t *testing.T) {
	c := mustCase(t, "10.00",
		prize("zero", "0", "1"),
		prize("double", "20", "1"),
	)
	e := New(NewSeededSource(42))

	dist, err := e.Distribution(c, d("50"))
	require.NoError(t, err)
	assert.True(t, dist.TargetEV.Equal(d("5")))
	assert.True(t, dist.NaturalEV.Equal(d("10")))
	assert.InDelta(t, 5.0, dist.ExpectedEV.InexactFloat64(), 1e-12)
	assert.InDelta(t, 0.75, probOf(t, dist, "zero").InexactFloat64(), 1e-12)
	assert.InDelta(t, 0.25, probOf(t, dist, "double").InexactFloat64(), 1e-12)

	rep, err := e.Simulate(c, d("50"), 200_000)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rep.MeanPayout.InexactFloat64(), 0.15)
	assert.InDelta(t, 50.0, rep.RealizedRTP.InexactFloat64(), 1.5)
}

func TestScenarioLowPriceCase(t *testing.T) {
	c := mustCase(t, "1.50",
		prize("nothing", "0", "0.7"),
		prize("triple", "3.00", "0.3"),
	)
	e := New(NewSeededSource(1))

	dist, err := e.Distribution(c, d("50"))
	require.NoError(t, err)

	assert.True(t, dist.TargetEV.Equal(d("0.75")))
	assert.True(t, dist.NaturalEV.Equal(d("0.9")))
	assert.False(t, dist.Clamped)
	assert.InDelta(t, 0.75, dist.ExpectedEV.InexactFloat64(), 1e-12)
	assert.True(t, probOf(t, dist, "nothing").IsPositive())
	assert.True(t, probOf(t, dist, "triple").IsPositive())
	assert.InDelta(t, 0.75, probOf(t, dist, "nothing").InexactFloat64(), 1e-12)

	rep, err := e.Simulate(c, d("50"), 50_000)
	require.NoError(t, err)
	assert.Greater(t, rep.Counts["nothing"], 0)
	assert.Greater(t, rep.Counts["triple"], 0)
}

func TestNoDeadPrizesWhenTargetUnreachable(t *testing.T) {
	c := mustCase(t, "10.00",
		prize("zero", "0", "1"),
		prize("double", "20", "1"),
	)
	e := New(NewSeededSource(3))

	for _, rtp := range []string{"0", "100"} {
		cc := c
		if rtp == "100" {
			// alvo 100 > maior prêmio: inalcançável
			cc.Price = d("100")
		}
		rep, err := e.Simulate(cc, d(rtp), 100_000)
		require.NoError(t, err)

		assert.True(t, rep.Distribution.Clamped, "rtp %s", rtp)
		for id, n := range rep.Counts {
			assert.Greater(t, n, 0, "prize %s never drawn at rtp %s", id, rtp)
		}
		for _, en := range rep.Distribution.Entries {
			minProb := en.BaseProbability.Mul(DefaultMinRetention)
			assert.True(t, en.Probability.GreaterThanOrEqual(minProb.Sub(decimal.New(1, -18))),
				"prize %s fell below retention floor", en.PrizeID)
		}
	}
}

func TestProbabilitiesSumToOne(t *testing.T) {
	c := mustCase(t, "7.30",
		prize("p1", "0", "3"),
		prize("p2", "1.10", "7"),
		prize("p3", "4.99", "11"),
		prize("p4", "25.00", "0.5"),
		prize("p5", "199.99", "0.01"),
	)
	e := New(nil)

	for _, rtp := range []string{"0", "12.5", "50", "85", "99.99", "100"} {
		dist, err := e.Distribution(c, d(rtp))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, en := range dist.Entries {
			assert.True(t, en.Probability.IsPositive())
			sum = sum.Add(en.Probability)
		}
		assert.InDelta(t, 1.0, sum.InexactFloat64(), 1e-12, "rtp %s", rtp)
		assert.True(t, dist.Entries[len(dist.Entries)-1].Cumulative.Equal(sum))
		if !dist.Clamped {
			assert.InDelta(t, dist.TargetEV.InexactFloat64(), dist.ExpectedEV.InexactFloat64(), 1e-9, "rtp %s", rtp)
		}
	}
}

func TestEntriesOrderedByValueThenID(t *testing.T) {
	c := mustCase(t, "5",
		prize("z", "3", "1"),
		prize("b", "1", "1"),
		prize("a", "1", "1"),
		prize("m", "0", "1"),
	)
	dist, err := New(nil).Distribution(c, d("50"))
	require.NoError(t, err)

	var ids []string
	for _, en := range dist.Entries {
		ids = append(ids, en.PrizeID)
	}
	assert.Equal(t, []string{"m", "a", "b", "z"}, ids)
}

func TestDeterministicUnderFixedSeed(t *testing.T) {
	c := mustCase(t, "2.00",
		prize("a", "0", "5"),
		prize("b", "1", "3"),
		prize("c", "5", "1"),
		prize("d", "50", "0.1"),
	)
	e1 := New(NewSeededSource(2024))
	e2 := New(NewSeededSource(2024))

	for i := 0; i < 500; i++ {
		o1, err := e1.Draw(c, d("70"))
		require.NoError(t, err)
		o2, err := e2.Draw(c, d("70"))
		require.NoError(t, err)
		require.Equal(t, o1.PrizeID(), o2.PrizeID(), "draw %d", i)
		require.True(t, o1.Roll.Equal(o2.Roll))
	}
}

func TestBoundaryRejection(t *testing.T) {
	e := New(NewSeededSource(1))
	valid := mustCase(t, "1", prize("a", "1", "1"))

	for _, rtp := range []string{"-1", "150", "100.01"} {
		_, err := e.Draw(valid, d(rtp))
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "rtp %s", rtp)
	}

	empty := Case{ID: "empty", Price: d("1"), Active: true}
	_, err := e.Draw(empty, d("50"))
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	inactive := Case{ID: "inactive", Price: d("1"), Active: true, Prizes: []Prize{
		{ID: "a", Value: d("1"), Weight: d("1"), Active: false},
		{ID: "b", Value: d("2"), Weight: d("1"), Active: false},
	}}
	_, err = e.Draw(inactive, d("50"))
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	zeroWeights := Case{ID: "zero", Price: d("1"), Active: true, Prizes: []Prize{
		prize("a", "1", "0"),
		prize("b", "2", "0"),
	}}
	_, err = e.Draw(zeroWeights, d("50"))
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	negative := Case{ID: "neg", Price: d("1"), Active: true, Prizes: []Prize{prize("a", "-1", "1")}}
	_, err = e.Draw(negative, d("50"))
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	free := Case{ID: "free", Price: d("0"), Active: true, Prizes: []Prize{prize("a", "1", "1")}}
	_, err = e.Draw(free, d("50"))
	assert.ErrorIs(t, err, ErrInvalidCaseState)
}

func TestNewCaseValidates(t *testing.T) {
	_, err := NewCase("", "x", d("1"), true, []Prize{prize("a", "1", "1")})
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	_, err = NewCase("c", "x", d("1"), true, []Prize{prize("a", "1", "-0.1")})
	assert.ErrorIs(t, err, ErrInvalidCaseState)

	c, err := NewCase("c", "x", d("1"), true, []Prize{prize("a", "1", "2"), prize("b", "3", "0")})
	require.NoError(t, err)
	assert.Len(t, c.Eligible(), 1)
}

func TestZeroWeightPrizeIsNeverDrawn(t *testing.T) {
	c := mustCase(t, "1", prize("a", "1", "1"), prize("off", "100", "0"))
	rep, err := New(NewSeededSource(5)).Simulate(c, d("50"), 1000)
	require.NoError(t, err)
	_, ok := rep.Counts["off"]
	assert.False(t, ok)
	assert.Equal(t, 1000, rep.Counts["a"])
}

func TestPickFallsBackToLastEntry(t *testing.T) {
	dist := Distribution{Entries: []Entry{
		{PrizeID: "a", Cumulative: d("0.4")},
		{PrizeID: "b", Cumulative: d("0.99999999999999999999")},
	}}
	assert.Equal(t, 0, dist.Pick(d("0")))
	assert.Equal(t, 0, dist.Pick(d("0.399")))
	assert.Equal(t, 1, dist.Pick(d("0.4")))
	assert.Equal(t, 1, dist.Pick(d("0.999999999999999999995")))
	assert.Equal(t, 1, dist.Pick(d("1")))
}

type fixedSource int64

func (f fixedSource) Int63n(n int64) int64 { return int64(f) % n }

func TestDrawUsesInjectedRoll(t *testing.T) {
	c := mustCase(t, "10", prize("low", "0", "1"), prize("high", "20", "1"))

	low, err := New(fixedSource(0)).Draw(c, d("100"))
	require.NoError(t, err)
	assert.Equal(t, "low", low.PrizeID())
	assert.True(t, low.Roll.IsZero())

	high, err := New(fixedSource(rollScale-1)).Draw(c, d("100"))
	require.NoError(t, err)
	assert.Equal(t, "high", high.PrizeID())
	assert.Equal(t, "0.999999999999999", high.Roll.String())
}

func TestWithMinRetention(t *testing.T) {
	e := New(nil, WithMinRetention(d("0.2")))
	assert.True(t, e.Policy().MinRetention.Equal(d("0.2")))

	ignored := New(nil, WithMinRetention(d("1.5")))
	assert.True(t, ignored.Policy().MinRetention.Equal(DefaultMinRetention))

	c := mustCase(t, "10", prize("zero", "0", "1"), prize("double", "20", "1"))
	dist, err := e.Distribution(c, d("0"))
	require.NoError(t, err)
	assert.True(t, dist.Clamped)
	assert.InDelta(t, 0.1, probOf(t, dist, "double").InexactFloat64(), 1e-12)
}
