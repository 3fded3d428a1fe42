package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/filter"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("update: %w", apperr.ErrImmutableID), exitValidation},
		{fmt.Errorf("lint: %w", apperr.ErrValidation), exitValidation},
		{fmt.Errorf("get: %w", apperr.ErrNotFound), exitResolution},
		{fmt.Errorf("delete: %w", apperr.ErrNotConfirmed), exitResolution},
		{errors.New("disk full"), exitInternal},
		{cli.Exit("usage", 5), 5},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestListFilters(t *testing.T) {
	var got filter.Filters
	cmd := listCommand()
	cmd.Action = func(_ context.Context, c *cli.Command) error {
		got = listFilters(c)
		return nil
	}
	err := cmd.Run(context.Background(), []string{"list", "--tag", "smoke", "--tag", "ui", "--status", "done", "--since", "2026-03-01", "--until", "2026-03-31"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "ui" {
		t.Errorf("tags = %v", got.Tags)
	}
	if len(got.TestcaseStatus) != 1 || got.TestcaseStatus[0] != "done" {
		t.Errorf("status = %v", got.TestcaseStatus)
	}
	if got.Date == nil || got.Date.Operator != filter.OpBetween || got.Date.To != "2026-03-31" {
		t.Errorf("date = %+v", got.Date)
	}
}
