package round

import "testing"

func TestCurrentPrice(t *testing.T) {
	cases := []struct {
		name      string
		basePrice float64
		bidCount  int
		increment float64
		want      float64
	}{
		{name: "zero bids holds base price", basePrice: 2.0, bidCount: 0, increment: 0.5, want: 2.0},
		{name: "first bid carries no increment", basePrice: 2.0, bidCount: 1, increment: 0.5, want: 2.0},
		{name: "second bid adds one increment", basePrice: 2.0, bidCount: 2, increment: 0.5, want: 2.5},
		{name: "fifth bid adds four increments", basePrice: 2.0, bidCount: 5, increment: 0.5, want: 4.0},
		{name: "fractional base rounds to 2dp", basePrice: 1.75, bidCount: 3, increment: 0.5, want: 2.75},
		{name: "non-half increment", basePrice: 10.0, bidCount: 4, increment: 0.25, want: 10.75},
		{name: "float-hostile operands stay exact", basePrice: 0.1, bidCount: 3, increment: 0.2, want: 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CurrentPrice(tc.basePrice, tc.bidCount, tc.increment)
			if got != tc.want {
				t.Fatalf("CurrentPrice(%v, %d, %v) = %v, want %v", tc.basePrice, tc.bidCount, tc.increment, got, tc.want)
			}
		})
	}
}
