package units

import "testing"

func TestConversions(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"one hectare", Hectares(10000), 1},
		{"one cell of 30m", Hectares(900), 0.09},
		{"zero", Hectares(0), 0},
		{"per hectare", PerHectare(0.002), 20},
	}
	for _, tt := range tests {
		if diff := tt.got - tt.want; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label("total_area", Hectare); got != "total_area (ha)" {
		t.Errorf("Label() = %q", got)
	}
	if got := Label("number_of_patches", None); got != "number_of_patches" {
		t.Errorf("Label() = %q", got)
	}
}
