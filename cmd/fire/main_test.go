package main

import (
	"testing"

	"fire/internal/core"
)

func TestFindStream(t *testing.T) {
	streams := map[int64]core.Stream{
		1700000000000: {Key: 1700000000000, Name: "Salary"},
		1700000000001: {Key: 1700000000001, Name: "rent"},
	}
	tests := []struct {
		arg  string
		key  int64
		want bool
	}{
		{"1700000000000", 1700000000000, true},
		{"salary", 1700000000000, true},
		{"RENT", 1700000000001, true},
		{"42", 0, false},
		{"car", 0, false},
	}
	for _, tt := range tests {
		key, ok := findStream(streams, tt.arg)
		if ok != tt.want || key != tt.key {
			t.Errorf("findStream(%q) = %d, %v, want %d, %v", tt.arg, key, ok, tt.key, tt.want)
		}
	}
}
