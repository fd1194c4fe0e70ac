package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

func TestRun_JSONReportConverges(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-case", "testdata/starter.json", "-rtp", "50", "-n", "20000", "-seed", "42", "-json"}, &out)
	require.NoError(t, err)

	var rep draw.SimulationReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 20000, rep.Draws)
	assert.InDelta(t, 0.75, rep.MeanPayout.InexactFloat64(), 0.05)
	assert.Positive(t, rep.Counts["sticker"])
	assert.Positive(t, rep.Counts["skin"])
}

func TestRun_TableOutput(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-case", "testdata/starter.json", "-rtp", "50", "-n", "1000", "-seed", "7"}, &out)
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "case starter")
	assert.Contains(t, s, "PRIZE")
	assert.Contains(t, s, "skin")
	assert.Contains(t, s, "target EV 0.750000")
}

func TestRun_SameSeedSameReport(t *testing.T) {
	args := []string{"-case", "testdata/starter.json", "-rtp", "70", "-n", "500", "-seed", "99", "-json"}
	var a, b bytes.Buffer
	require.NoError(t, run(args, &a))
	require.NoError(t, run(args, &b))
	assert.Equal(t, a.String(), b.String())
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer

	assert.Error(t, run([]string{}, &out))
	assert.Error(t, run([]string{"-case", "testdata/missing.json"}, &out))
	assert.Error(t, run([]string{"-case", "testdata/starter.json", "-rtp", "abc"}, &out))
	assert.ErrorIs(t, run([]string{"-case", "testdata/starter.json", "-rtp", "150"}, &out), draw.ErrInvalidConfiguration)
	assert.ErrorIs(t, run([]string{"-case", "testdata/starter.json", "-n", "0"}, &out), draw.ErrInvalidConfiguration)
}
