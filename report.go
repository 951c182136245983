package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/Ezekail/rostercrawl/engine"
	"github.com/Ezekail/rostercrawl/parse"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var statusColor = map[engine.Status]func(a ...interface{}) string{
	engine.StatusDone:        color.New(color.FgGreen).SprintFunc(),
	engine.StatusTruncated:   color.New(color.FgYellow).SprintFunc(),
	engine.StatusUnsupported: color.New(color.FgCyan).SprintFunc(),
	engine.StatusFailed:      color.New(color.FgRed).SprintFunc(),
}

func printOutcomes(w io.Writer, outcomes []engine.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Institution", "Status", "Pages", "Names", "Skipped", "Output"})

	counts := map[engine.Status]int{}
	for _, out := range outcomes {
		counts[out.Status]++
		detail := out.RosterPath
		if out.Err != nil {
			detail = out.Err.Error()
		}
		table.Append([]string{
			out.Institution,
			statusColor[out.Status](string(out.Status)),
			fmt.Sprintf("%d", out.Pages),
			fmt.Sprintf("%d", len(out.Records)),
			fmt.Sprintf("%d", out.Skipped),
			detail,
		})
	}
	table.Render()

	fmt.Fprintf(w, "%d done, %d truncated, %d unsupported, %d failed\n",
		counts[engine.StatusDone], counts[engine.StatusTruncated],
		counts[engine.StatusUnsupported], counts[engine.StatusFailed])
}

// logFailures reports every failed institution, split into network
// failures and everything else.
func logFailures(logger *zap.Logger, outcomes []engine.Outcome) {
	for _, err := range multierr.Errors(engine.Failures(outcomes)) {
		kind := "other"
		if collect.IsNetworkError(err) {
			kind = "network"
		}
		logger.Warn("institution failed", zap.String("kind", kind), zap.Error(err))
	}
}

func printRules(w io.Writer, entries []parse.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Institution", "Rule", "Paginated", "Aliases"})
	for _, e := range entries {
		kind, paged := color.CyanString("unsupported"), ""
		if e.Rule != nil {
			kind = string(e.Rule.Kind())
			if _, ok := e.Rule.Pagination().(parse.NextLink); ok {
				paged = "yes"
			}
		}
		table.Append([]string{e.Name, kind, paged, strings.Join(e.Aliases, ", ")})
	}
	table.Render()
}
