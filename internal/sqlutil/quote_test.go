package sqlutil

import (
	"reflect"
	"testing"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"user_data", "`user_data`"},
		{"select", "`select`"},         // reserved word
		{"first name", "`first name`"}, // space in name
		{"user`data", "`user``data`"},  // backtick in name
		{"a`b`c", "`a``b``c`"},         // multiple backticks
		{"", "``"},                     // empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQuoteIdentifiers(t *testing.T) {
	got := QuoteIdentifiers([]string{"id", "locale", "content_id"})
	want := []string{"`id`", "`locale`", "`content_id`"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("QuoteIdentifiers = %v, want %v", got, want)
	}

	if got := QuoteIdentifiers(nil); len(got) != 0 {
		t.Errorf("QuoteIdentifiers(nil) = %v, want empty", got)
	}
}
