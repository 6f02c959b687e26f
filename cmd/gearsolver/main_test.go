package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunSolve(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "DefaultsReproduceExample",
			args:     nil,
			wantCode: 0,
			wantOut:  "{S: 10, P: 35}\n",
		},
		{
			name:     "ExplicitSolveCommand",
			args:     []string{"solve", "--ratio=1:3", "--ring=72"},
			wantCode: 0,
			wantOut:  "{S: 36, P: 18}\n",
		},
		{
			name:     "NoIntegerSolution",
			args:     []string{"solve", "--ratio=1/7", "--ring=80"},
			wantCode: 1,
			wantOut:  "no valid solution with given parameters\n",
		},
		{
			name:     "MeshingViolation",
			args:     []string{"solve", "--ratio=1/5", "--ring=80"},
			wantCode: 1,
			wantOut:  "no valid solution as (R + S) / Np is not a whole number.: 1\n",
		},
		{
			name:     "ToleranceAcceptsRoundingError",
			args:     []string{"solve", "--ratio=3/8", "--ring=45", "--tolerance=1e-9"},
			wantCode: 0,
			wantOut:  "{S: 27, P: 9}\n",
		},
		{
			name:     "FourPlanets",
			args:     []string{"solve", "--ratio=1/5", "--ring=80", "--planets=4"},
			wantCode: 0,
			wantOut:  "{S: 20, P: 30}\n",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tc.args, &stdout, &stderr)

			if code != tc.wantCode {
				t.Fatalf("expected exit code %d, got %d (stderr: %s)", tc.wantCode, code, stderr.String())
			}
			if got := stdout.String(); got != tc.wantOut {
				t.Fatalf("expected output %q, got %q", tc.wantOut, got)
			}
		})
	}
}

func TestRunSolveRejectsInvalidInput(t *testing.T) {
	tests := map[string][]string{
		"UnityRatio":     {"solve", "--ratio=1/1"},
		"UnparsedRatio":  {"solve", "--ratio=abc"},
		"ZeroPlanets":    {"solve", "--planets=0"},
		"NegativeRing":   {"solve", "--ring=-4"},
		"UnknownFlag":    {"solve", "--gears=3"},
		"UnknownCommand": {"spin"},
		"BadLogLevel":    {"solve", "--log-level=chatty"},
	}

	for name, args := range tests {
		args := args
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(args, &stdout, &stderr); code == 0 {
				t.Fatalf("expected non-zero exit code for %v", args)
			}
			if strings.HasPrefix(stdout.String(), "{S:") {
				t.Fatalf("expected no solution output, got %q", stdout.String())
			}
		})
	}
}

func TestRunServeFailsOnInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"serve", "--planet-count=0"}, &stdout, &stderr)
	if code == 0 {
		t.Fatalf("expected serve to fail for zero planets")
	}
	if !strings.Contains(stderr.String(), "failed to load configuration") {
		t.Fatalf("expected configuration error, got %q", stderr.String())
	}
}
