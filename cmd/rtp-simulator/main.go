// rtp-simulator sorteia n vezes uma caixa com semente fixa e compara o
// pagamento médio observado com o alvo de RTP.
//
//	rtp-simulator -case testdata/starter.json -rtp 85 -n 100000 -seed 42
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/slotbox-platform-poc/internal/draw"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rtp-simulator:", err)
		os.Exit(2)
	}
}

type options struct {
	casePath     string
	rtp          string
	draws        int
	seed         int64
	minRetention string
	asJSON       bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("rtp-simulator", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.casePath, "case", "", "arquivo JSON da caixa (id, name, price, prizes)")
	fs.StringVar(&o.rtp, "rtp", "50", "RTP alvo em percentual (0..100)")
	fs.IntVar(&o.draws, "n", 100000, "quantidade de sorteios")
	fs.Int64Var(&o.seed, "seed", 0, "semente; 0 usa o relógio")
	fs.StringVar(&o.minRetention, "min-retention", "", "retenção mínima por prêmio, ex: 0.01")
	fs.BoolVar(&o.asJSON, "json", false, "imprime o relatório em JSON")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.casePath == "" {
		return o, errors.New("-case is required")
	}
	return o, nil
}

func loadCase(path string) (draw.Case, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return draw.Case{}, err
	}
	var c draw.Case
	if err := json.Unmarshal(b, &c); err != nil {
		return draw.Case{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return draw.NewCase(c.ID, c.Name, c.Price, true, c.Prizes)
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	target, err := decimal.NewFromString(o.rtp)
	if err != nil {
		return fmt.Errorf("invalid -rtp %q: %w", o.rtp, err)
	}
	c, err := loadCase(o.casePath)
	if err != nil {
		return err
	}

	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var opts []draw.Option
	if o.minRetention != "" {
		mr, err := decimal.NewFromString(o.minRetention)
		if err != nil {
			return fmt.Errorf("invalid -min-retention %q: %w", o.minRetention, err)
		}
		opts = append(opts, draw.WithMinRetention(mr))
	}

	rep, err := draw.New(draw.NewSeededSource(seed), opts...).Simulate(c, target, o.draws)
	if err != nil {
		return err
	}

	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return printReport(out, seed, rep)
}

func printReport(out io.Writer, seed int64, rep draw.SimulationReport) error {
	d := rep.Distribution
	fmt.Fprintf(out, "case %s  price %s  rtp target %s%%  seed %d  draws %d\n",
		d.CaseID, d.Price, d.RTPTarget, seed, rep.Draws)
	fmt.Fprintf(out, "natural EV %s  target EV %s  expected EV %s  tilt %s  clamped %t\n\n",
		d.NaturalEV.StringFixed(6), d.TargetEV.StringFixed(6), d.ExpectedEV.StringFixed(6), d.Tilt.StringFixed(6), d.Clamped)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIZE\tVALUE\tBASE\tPROB\tOBSERVED\tCOUNT")
	for _, en := range d.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6f\t%d\n",
			en.PrizeID,
			en.Value.StringFixed(2),
			en.BaseProbability.StringFixed(6),
			en.Probability.StringFixed(6),
			rep.Frequency(en.PrizeID),
			rep.Counts[en.PrizeID],
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nmean payout %s vs target %s  realized RTP %s%%\n",
		rep.MeanPayout.StringFixed(6), d.TargetEV.StringFixed(6), rep.RealizedRTP.StringFixed(2))
	return nil
}
