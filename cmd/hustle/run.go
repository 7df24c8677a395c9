package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hustledb/hustle/internal/execplan"
	"github.com/hustledb/hustle/internal/operators"
	"github.com/hustledb/hustle/internal/storage"
	"github.com/hustledb/hustle/internal/storage/ipc"
	"github.com/hustledb/hustle/internal/types"
)

var (
	runLineorder string
	runDate      string
	runYear      int64
)

// aggregateAdapter binds an Aggregate operator's Input to one view of the
// working result at plan-run time, since Aggregate (like LIP) is
// constructed with its source view fixed, but in a plan that view is only
// produced once the upstream join has run.
type aggregateAdapter struct {
	view int
	tmpl operators.Aggregate
}

func (a *aggregateAdapter) Run(in operators.Result) (operators.Result, error) {
	agg := a.tmpl
	agg.Input = in[a.view]
	return agg.Run(nil)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the canned lineorder/date revenue-by-year query",
	Long: `run fires a star-schema plan equivalent to SSB query Q1.1 (spec
§4.17, recovered from original_source/src/ssb/workload.cpp): it selects
lineorder rows with 1<=discount<=3 and quantity<25, selects date rows
matching --year, joins them on lineorder.order_date = date.date_key, and
sums revenue. Requires a lineorder table with columns order_date, quantity,
discount, revenue and a date table with columns date_key, year, both
loaded via "hustle load".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loTable, err := openIPCTable(runLineorder, "lineorder")
		if err != nil {
			return err
		}
		dateTable, err := openIPCTable(runDate, "date")
		if err != nil {
			return err
		}

		loPred := operators.And(
			operators.Leaf("quantity", types.OpLT, 25),
			operators.Between("discount", 1, 3),
		)
		datePred := operators.Leaf("year", types.OpEQ, runYear)

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
		result, err := plan.Run()
		if err != nil {
			return fmt.Errorf("hustle run: %w", err)
		}
		if err := sched.Join(); err != nil {
			return fmt.Errorf("hustle run: %w", err)
		}

		out, err := operators.Project(result, []operators.OutputRef{
			{OutputName: "revenue", View: 0, Column: "aggregate"},
		}, 0)
		if err != nil {
			return fmt.Errorf("hustle run: %w", err)
		}

		printTable(out)
		fmt.Fprintf(os.Stderr, "plan %s elapsed: %s\n", plan.PlanID, plan.Elapsed)
		printProfilerSummary(os.Stderr)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runLineorder, "lineorder", "", "lineorder table IPC file (required)")
	runCmd.Flags().StringVar(&runDate, "date", "", "date table IPC file (required)")
	runCmd.Flags().Int64Var(&runYear, "year", 1993, "date.year to filter on")
	_ = runCmd.MarkFlagRequired("lineorder")
	_ = runCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(runCmd)
}

func openIPCTable(path, name string) (*storage.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hustle: opening %s: %w", path, err)
	}
	defer f.Close()
	t, err := ipc.ReadTable(f, name, 1<<20)
	if err != nil {
		return nil, fmt.Errorf("hustle: reading %s: %w", path, err)
	}
	return t, nil
}

func printTable(t *storage.Table) {
	if jsonOutput {
		rows := make([]map[string]interface{}, 0, t.NumRows())
		for _, id := range t.BlockIDs() {
			b := t.GetBlock(id)
			for slot := 0; slot < b.NumRows(); slot++ {
				if !b.Valid(slot) {
					continue
				}
				row := make(map[string]interface{}, len(t.Schema.Fields))
				for ci, f := range t.Schema.Fields {
					row[f.Name] = cellValue(b, ci, f, slot)
				}
				rows = append(rows, row)
			}
		}
		outputJSON(rows)
		return
	}
	for _, f := range t.Schema.Fields {
		fmt.Printf("%s\t", f.Name)
	}
	fmt.Println()
	for _, id := range t.BlockIDs() {
		b := t.GetBlock(id)
		for slot := 0; slot < b.NumRows(); slot++ {
			if !b.Valid(slot) {
				continue
			}
			for ci, f := range t.Schema.Fields {
				fmt.Printf("%v\t", cellValue(b, ci, f, slot))
			}
			fmt.Println()
		}
	}
}

func cellValue(b *storage.Block, colIdx int, f types.Field, slot int) interface{} {
	switch {
	case f.Kind.IsVariableWidth():
		return string(b.StringAt(colIdx, slot))
	case f.Kind == types.KindFloat64:
		return b.Float64At(colIdx, slot)
	default:
		return b.Int64At(colIdx, slot)
	}
}

func printProfilerSummary(w *os.File) {
	if sched.Profiler() == nil {
		return
	}
	summary := sched.Profiler().Summary()
	for workerID, events := range summary {
		for _, ev := range events {
			fmt.Fprintf(w, "worker=%d task=%s type=%s duration=%dns err=%v\n",
				workerID, ev.TaskName, ev.TaskType, ev.EndNS-ev.StartNS, ev.Err)
		}
	}
}
