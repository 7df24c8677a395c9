package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hustledb/hustle/internal/execplan"
	"github.com/hustledb/hustle/internal/operators"
	"github.com/hustledb/hustle/internal/types"
)

var (
	benchLineorder  string
	benchDate       string
	benchIterations int
)

// benchVariant is one of the SSB Q1.x-style revenue queries (spec §4.17),
// recovered from original_source/src/ssb/workload.cpp's execute_q11 and
// varied per variant: q1.1/q1.2/q1.3 each use their own year, discount band
// and quantity upper bound (see benchVariants).
type benchVariant struct {
	name          string
	year          int64
	discountLo    int64
	discountHi    int64
	quantityBound int64
}

var benchVariants = []benchVariant{
	{name: "q1.1", year: 1993, discountLo: 1, discountHi: 3, quantityBound: 25},
	{name: "q1.2", year: 1994, discountLo: 4, discountHi: 6, quantityBound: 35},
	{name: "q1.3", year: 1995, discountLo: 5, discountHi: 7, quantityBound: 40},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the SSB-style Q1.x revenue benchmark suite",
	Long: `bench repeats the lineorder/date revenue query across the three
Q1.x-style predicate bands used by the Star Schema Benchmark, --iterations
times each, and reports per-variant timing (spec §4.17, recovered from
original_source/src/ssb/workload.cpp).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loTable, err := openIPCTable(benchLineorder, "lineorder")
		if err != nil {
			return err
		}
		dateTable, err := openIPCTable(benchDate, "date")
		if err != nil {
			return err
		}

		type benchResult struct {
			variant string
			elapsed []time.Duration
		}
		var results []benchResult

		for _, v := range benchVariants {
			br := benchResult{variant: v.name}
			for i := 0; i < benchIterations; i++ {
				loPred := operators.And(
					operators.Leaf("quantity", types.OpLT, v.quantityBound),
					operators.Between("discount", v.discountLo, v.discountHi),
				)
				datePred := operators.Leaf("year", types.OpEQ, v.year)

				nodes := []*execplan.OpNode{
					{Name: "select_lineorder", Op: &operators.Select{Table: loTable, Predicate: loPred}},
					{Name: "select_date", Op: &operators.Select{Table: dateTable, Predicate: datePred}},
					{
						Name: "join_lineorder_date",
						Op: &operators.Join{Predicates: []operators.EqJoinPredicate{
							{Left: operators.ColumnRef{View: 0, Column: "order_date"}, Right: operators.ColumnRef{View: 1, Column: "date_key"}},
						}},
						Inputs: []int{0, 1},
					},
					{
						Name: "aggregate_revenue",
						Op: &aggregateAdapter{view: 0, tmpl: operators.Aggregate{
							AggColumn: "revenue",
							Kind:      operators.AggSum,
						}},
						Inputs: []int{2},
					},
				}

				plan := execplan.New(sched, operators.Result{}, nodes)
				if _, err := plan.Run(); err != nil {
					return fmt.Errorf("hustle bench: variant %s iteration %d: %w", v.name, i, err)
				}
				br.elapsed = append(br.elapsed, plan.Elapsed)
			}
			results = append(results, br)
		}

		// Join only once, after every variant/iteration has retired: Join
		// halts the scheduler's workers for good, so it cannot be called
		// between plan runs that share one scheduler.
		if err := sched.Join(); err != nil {
			return fmt.Errorf("hustle bench: %w", err)
		}

		if jsonOutput {
			out := make([]map[string]interface{}, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]interface{}{
					"variant": r.variant,
					"mean_ns": meanNS(r.elapsed),
					"runs":    len(r.elapsed),
				})
			}
			outputJSON(out)
			return nil
		}

		for _, r := range results {
			fmt.Printf("%s\tmean=%s\truns=%d\n", r.variant, time.Duration(meanNS(r.elapsed)), len(r.elapsed))
		}
		printProfilerSummary(os.Stderr)
		return nil
	},
}

func meanNS(durs []time.Duration) int64 {
	if len(durs) == 0 {
		return 0
	}
	var total int64
	for _, d := range durs {
		total += d.Nanoseconds()
	}
	return total / int64(len(durs))
}

func init() {
	benchCmd.Flags().StringVar(&benchLineorder, "lineorder", "", "lineorder table IPC file (required)")
	benchCmd.Flags().StringVar(&benchDate, "date", "", "date table IPC file (required)")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 5, "iterations per query variant")
	_ = benchCmd.MarkFlagRequired("lineorder")
	_ = benchCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(benchCmd)
}
