package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedErr struct{ code int }

func (e codedErr) Error() string { return "coded\nfailure" }
func (e codedErr) ExitCode() int { return e.code }

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if got := report(&buf, nil); got != 0 || buf.Len() != 0 {
		t.Fatalf("nil error: code=%d out=%q", got, buf.String())
	}

	buf.Reset()
	if got := report(&buf, fmt.Errorf("wrapped: %w", codedErr{code: 2})); got != 2 {
		t.Fatalf("expected exit 2, got %d", got)
	}
	if buf.String() != "wrapped: coded failure\n" {
		t.Fatalf("unexpected stderr: %q", buf.String())
	}

	buf.Reset()
	if got := report(&buf, errors.New("plain")); got != 1 || buf.String() != "plain\n" {
		t.Fatalf("plain error: code=%d out=%q", got, buf.String())
	}

	buf.Reset()
	if got := report(&buf, codedErr{code: 0}); got != 1 {
		t.Fatalf("zero code must map to 1, got %d", got)
	}
}
