package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDistrict(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Praha 8", "Praha 8"},
		{"prague 8", "Praha 8"},
		{"praha8", "Praha 8"},
		{"Praha-10", "Praha 10"},
		{"Praha 08", "Praha 8"},
		{"Praha 0", "Praha 0"},
		{" praha  00", "praha 00"},
		{"  Karlín  ", "Karlín"},
		{"Vinohrady   Praha", "Vinohrady Praha"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDistrict(tt.input))
		})
	}
}

func TestNormalizeDisposition(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2+kk", "2+kk"},
		{"2 + KK", "2+kk"},
		{"3kk", "3+kk"},
		{"3+1", "3+1"},
		{"Studio", "1+kk"},
		{"loft", "loft"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDisposition(tt.input))
		})
	}
}
