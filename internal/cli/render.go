package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/driftwatch/driftwatch/internal/guard"
)

// renderReport writes the human-readable verdict report. Every guard
// appears with its individual status; failures carry their diagnostic
// indented beneath them.
func renderReport(w io.Writer, report *guard.Report) {
	fmt.Fprintf(w, "run %s\n", report.RunID)
	for _, v := range report.Verdicts {
		switch v.Status {
		case guard.StatusPass:
			fmt.Fprintf(w, "  pass     %s\n", v.Guard)
		case guard.StatusFail:
			fmt.Fprintf(w, "  FAIL     %s\n", v.Guard)
		case guard.StatusNotRun:
			fmt.Fprintf(w, "  not-run  %s\n", v.Guard)
		}
		if v.Detail != "" {
			for _, line := range strings.Split(v.Detail, "\n") {
				fmt.Fprintf(w, "           %s\n", line)
			}
		}
	}
	if report.Fatal != "" {
		fmt.Fprintf(w, "fatal: %s\n", report.Fatal)
	}

	passN, failN, notRunN := report.Counts()
	verdict := "PASS"
	if !report.Pass() {
		verdict = "FAIL"
	}
	fmt.Fprintf(w, "%s (%d pass, %d fail, %d not run)\n", verdict, passN, failN, notRunN)
}
