package main

import (
	"strings"
	"testing"

	"record-i18n/internal/loaderapp"
)

func TestSummaryError(t *testing.T) {
	tests := []struct {
		name    string
		summary *loaderapp.Summary
		wantErr string
	}{
		{
			name:    "nil summary fails",
			summary: nil,
			wantErr: "no run summary",
		},
		{
			name:    "clean run passes",
			summary: &loaderapp.Summary{Documents: 3, Applied: 3},
		},
		{
			name:    "failed documents fail the run",
			summary: &loaderapp.Summary{Documents: 5, Applied: 3, Failed: 2},
			wantErr: "2 of 5 documents failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := summaryError(tt.summary)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
