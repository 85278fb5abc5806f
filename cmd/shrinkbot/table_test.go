package main

import (
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Workspace", "Size"},
		[][]string{{"job-1", "2.00 MB"}, {"job-2"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	requireContains(t, out, "WORKSPACE")
	requireContains(t, out, "job-1")
	requireContains(t, out, "2.00 MB")
	requireContains(t, out, "job-2")
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, nil, nil); out != "" {
		t.Fatalf("expected empty render for empty headers, got %q", out)
	}
}
