// Package figure assembles landscape-metric time series for several
// agglomerations into a grid figure: one row per agglomeration, one column
// per metric.
//
// Assembler computes the series from raster extracts named
// {dir}/{slug}-{basename}{ext}; Figure lays them out with gonum/plot and
// writes any format gonum supports; RenderHTML produces an interactive
// go-echarts page with the same layout.
package figure
