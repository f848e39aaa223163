package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"hh-1", []string{"hh-1"}},
		{" hh-1 , hh-2,,", []string{"hh-1", "hh-2"}},
	}
	for _, tt := range tests {
		if got := parseIDs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseIDs(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)

	out := buf.String()
	if !strings.HasSuffix(out, "\n") || strings.HasSuffix(out, "\n\n") {
		t.Errorf("usage should end with exactly one newline, got %q", out[len(out)-10:])
	}
	for _, cmd := range []string{"migrate", "backfill-installments", "recompute-balances", "issue-token"} {
		if !strings.Contains(out, cmd) {
			t.Errorf("usage does not mention %q", cmd)
		}
	}
}
