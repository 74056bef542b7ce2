// Package units provides shared constants and conversions for the area and
// length units landscape metrics are reported in.
package units

// Unit labels
const (
	Metre            = "m"
	Hectare          = "ha"
	Percent          = "%"
	MetresPerHectare = "m/ha"
	PatchesPer100Ha  = "n/100 ha"
	MetresPerSqMetre = "m/m²"
	None             = ""
)

// SquareMetresPerHectare converts cell areas to hectares.
const SquareMetresPerHectare = 10000.0

// Hectares converts square metres to hectares.
func Hectares(sqMetres float64) float64 {
	return sqMetres / SquareMetresPerHectare
}

// PerHectare scales a per-square-metre quantity to a per-hectare one.
func PerHectare(perSqMetre float64) float64 {
	return perSqMetre * SquareMetresPerHectare
}

// Label formats a metric name with its unit for axis titles, e.g.
// "total_area (ha)". Unitless metrics keep their bare name.
func Label(name, unit string) string {
	if unit == None {
		return name
	}
	return name + " (" + unit + ")"
}
