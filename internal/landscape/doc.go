// Package landscape computes class-level landscape metrics from classified
// rasters and tracks them across a sequence of observation dates.
//
// Patches are connected components of cells sharing a class value, found
// with an 8-cell neighbourhood unless the landscape says otherwise. Areas are
// reported in hectares and lengths in metres, following FRAGSTATS
// conventions. Cells holding the nodata value are outside the landscape:
// they contribute no area and adjacency to them counts as landscape boundary.
package landscape
