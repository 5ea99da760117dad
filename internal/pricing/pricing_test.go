package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name  string
		daily string
		days  int
		qty   int
		want  string
	}{
		{"whole numbers", "50", 2, 2, "200.00"},
		{"single night", "75.50", 1, 1, "75.50"},
		{"half rounds down to even", "10.125", 1, 1, "10.12"},
		{"half rounds up to even", "10.135", 1, 1, "10.14"},
		{"rounded once at the end", "0.005", 3, 1, "0.02"},
		{"free space", "0", 7, 3, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Price(decimal.RequireFromString(tt.daily), tt.days, tt.qty)
			assert.Equal(t, tt.want, got.StringFixed(Places))
		})
	}
}
