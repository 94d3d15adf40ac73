package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/folio/internal/config"
	"github.com/mtlprog/folio/internal/dcf"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
)

func dcfCommand() *cli.Command {
	return &cli.Command{
		Name:  "dcf",
		Usage: "run a DCF valuation from flags and print the result as JSON",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "fcf", Usage: "latest annual free cash flow", Required: true},
			&cli.Float64Flag{Name: "shares", Usage: "shares outstanding", Required: true},
			&cli.Float64Flag{Name: "price", Usage: "current stock price"},
			&cli.Float64Flag{Name: "growth", Usage: "short-term growth rate, years 1-5", Value: 0.10},
			&cli.Float64Flag{Name: "long-growth", Usage: "long-term growth rate, years 6-10", Value: 0.04},
			&cli.Float64Flag{Name: "discount", Usage: "discount rate", Value: 0.09},
			&cli.Float64Flag{Name: "multiple", Usage: "terminal multiple", Value: 15},
			&cli.Float64Flag{Name: "sbc", Usage: "stock-based compensation"},
			&cli.Float64Flag{Name: "net-cash", Usage: "cash minus debt"},
			&cli.BoolFlag{Name: "simple", Usage: "ignore stock-based compensation"},
		},
		Action: func(c *cli.Context) error {
			in := domain.DCFInput{
				StockPrice:          c.Float64("price"),
				SharesOutstanding:   c.Float64("shares"),
				ShortTermGrowthRate: c.Float64("growth"),
				LongTermGrowthRate:  c.Float64("long-growth"),
				DiscountRate:        c.Float64("discount"),
				TerminalMultiple:    c.Float64("multiple"),
				StockBasedComp:      c.Float64("sbc"),
				NetCashDebt:         c.Float64("net-cash"),
				FreeCashFlow:        c.Float64("fcf"),
				SimpleMode:          c.Bool("simple"),
			}
			res, err := dcf.ValidateAndCalculate(in)
			if err != nil {
				return err
			}

			out := struct {
				Result         domain.DCFResult `json:"result"`
				MarginOfSafety *float64         `json:"marginOfSafety,omitempty"`
			}{Result: res}
			if in.StockPrice > 0 {
				mos := dcf.MarginOfSafety(res.IntrinsicValuePerShare, in.StockPrice)
				out.MarginOfSafety = &mos
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func exportCommand(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "generate a user's report and write it to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "user id", Required: true},
			&cli.StringFlag{Name: "out", Usage: "output path", Value: "portfolio.xlsx"},
		},
		Action: func(c *cli.Context) error {
			svc, err := newServices(c.Context, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			user := c.String("user")
			rep, err := svc.reports.Generate(c.Context, user, time.Now())
			if err != nil {
				return fmt.Errorf("generating report for %s: %w", user, err)
			}
			if err := export.NewService(export.NewXLSXWriter(c.String("out"))).Export(c.Context, rep); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "wrote %s\n", c.String("out"))
			return nil
		},
	}
}
