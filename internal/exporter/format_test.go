package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want string
	}{
		{name: "nil", cell: nil, want: ""},
		{name: "string", cell: "North", want: "North"},
		{name: "int", cell: 42, want: "42"},
		{name: "float keeps precision", cell: 0.125, want: "0.125"},
		{name: "large float has no exponent", cell: 1e21, want: "1000000000000000000000"},
		{name: "null value", cell: dataset.Null(), want: ""},
		{name: "number value", cell: dataset.Number(12.5), want: "12.5"},
		{name: "text value", cell: dataset.String("P1"), want: "P1"},
		{name: "ratio", cell: impact.Ratio{Value: -0.25}, want: "-0.25"},
		{name: "zero-base ratio", cell: impact.Ratio{ZeroBase: true}, want: impact.ZeroBaseSentinel},
		{name: "other", cell: true, want: "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCell(tt.cell))
		})
	}
}

func TestWorkbookCell(t *testing.T) {
	tests := []struct {
		name string
		cell any
		want any
	}{
		{name: "null value", cell: dataset.Null(), want: nil},
		{name: "number value stays numeric", cell: dataset.Number(3), want: 3.0},
		{name: "text value", cell: dataset.String("North"), want: "North"},
		{name: "ratio", cell: impact.Ratio{Value: 0.5}, want: 0.5},
		{name: "zero-base ratio", cell: impact.Ratio{ZeroBase: true}, want: impact.ZeroBaseSentinel},
		{name: "int passes through", cell: 7, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workbookCell(tt.cell))
		})
	}
}
