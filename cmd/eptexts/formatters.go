package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pevans/eptexts/collector"
	"github.com/pevans/eptexts/document"
)

const maxTitleWidth = 70

// printSummaryTable prints the outcome of a run in human-readable table
// format
func printSummaryTable(w io.Writer, mode, output string, result *collector.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scrape summary")

	status := "ok"
	if result.Err != nil {
		status = "failed: " + result.Err.Error()
	}

	t.AppendRows([]table.Row{
		{"Run", result.RunID.String()},
		{"Mode", mode},
		{"Pages", result.Pages},
		{"Records", len(result.Records)},
		{"Skipped entries", len(result.Skipped)},
		{"Duration", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()},
		{"Output", output},
		{"Status", status},
	})

	fields := make([]string, 0, len(result.Defaults))
	for field := range result.Defaults {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	if len(fields) > 0 {
		t.AppendSeparator()
		for _, field := range fields {
			t.AppendRow(table.Row{"Defaulted " + field, result.Defaults[field]})
		}
	}

	t.Render()
}

// printSummaryJSON prints the outcome of a run in JSON format
func printSummaryJSON(w io.Writer, mode string, result *collector.Result) error {
	output := map[string]any{
		"run_id":   result.RunID.String(),
		"mode":     mode,
		"pages":    result.Pages,
		"records":  len(result.Records),
		"skipped":  len(result.Skipped),
		"defaults": result.Defaults,
	}
	if result.Err != nil {
		output["error"] = result.Err.Error()
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

// printRecordsTable prints records in human-readable table format
func printRecordsTable(w io.Writer, records []document.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records to display.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Published", "Reference", "Procedure", "Type", "Title"})

	for i, rec := range records {
		t.AppendRow(table.Row{
			i + 1,
			rec.PublishedDate,
			rec.DocumentReference,
			rec.InterInstitutionalCode,
			rec.LegalDocumentType,
			truncate(rec.Title, maxTitleWidth),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(records)})

	t.Render()
}

// printRecordsCompact prints one record per line
func printRecordsCompact(w io.Writer, records []document.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records to display.")
		return
	}

	for _, rec := range records {
		reference := rec.DocumentReference
		if reference == "" {
			reference = "-"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", reference, rec.Title, rec.PublishedDate)
	}
}

// truncate shortens s to at most width runes, marking the cut with "..."
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
