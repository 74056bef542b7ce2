package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the path to the canonical figure defaults file.
const DefaultConfigPath = "config/figure.defaults.json"

// FigureConfig holds the knobs of the figure pipeline. Every field is
// optional; the Get* accessors supply defaults for missing values, so
// partial files are safe.
type FigureConfig struct {
	// Class of interest in the classified extracts
	ClassValue *int `json:"class_value,omitempty"`

	// Where the date code sits inside a CLC basename, e.g. "00" in g100_clc00_V18_5
	DateOffset *int `json:"date_offset,omitempty"`
	DateLength *int `json:"date_length,omitempty"`

	// Size of one grid cell of the figure, in inches
	CellWidthInches  *float64 `json:"cell_width_in,omitempty"`
	CellHeightInches *float64 `json:"cell_height_in,omitempty"`

	// Raster interpretation
	FallbackCellSize *float64 `json:"fallback_cell_size,omitempty"` // metres, when no pixel scale tag
	Nodata           *int     `json:"nodata,omitempty"`             // when no GDAL_NODATA tag
	NeighborhoodRule *string  `json:"neighborhood_rule,omitempty"`  // "4" or "8"
	CountBoundary    *bool    `json:"count_boundary,omitempty"`
	Extension        *string  `json:"extension,omitempty"` // raster file extension

	Workers *int `json:"workers,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyFigureConfig returns a FigureConfig with all fields set to nil.
func EmptyFigureConfig() *FigureConfig {
	return &FigureConfig{}
}

// DefaultFigureConfig returns a config with every field set to its default.
func DefaultFigureConfig() *FigureConfig {
	c := EmptyFigureConfig()
	return &FigureConfig{
		ClassValue:       ptrInt(c.GetClassValue()),
		DateOffset:       ptrInt(c.GetDateOffset()),
		DateLength:       ptrInt(c.GetDateLength()),
		CellWidthInches:  ptrFloat64(c.GetCellWidthInches()),
		CellHeightInches: ptrFloat64(c.GetCellHeightInches()),
		FallbackCellSize: ptrFloat64(c.GetFallbackCellSize()),
		Nodata:           ptrInt(c.GetNodata()),
		NeighborhoodRule: ptrString(c.GetNeighborhoodRule()),
		CountBoundary:    ptrBool(c.GetCountBoundary()),
		Extension:        ptrString(c.GetExtension()),
		Workers:          ptrInt(c.GetWorkers()),
	}
}

// LoadFigureConfig loads a FigureConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadFigureConfig(path string) (*FigureConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyFigureConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *FigureConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadFigureConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *FigureConfig) Validate() error {
	if c.DateOffset != nil && *c.DateOffset < 0 {
		return fmt.Errorf("date_offset must be non-negative, got %d", *c.DateOffset)
	}
	if c.DateLength != nil && *c.DateLength < 1 {
		return fmt.Errorf("date_length must be at least 1, got %d", *c.DateLength)
	}
	if c.CellWidthInches != nil && *c.CellWidthInches <= 0 {
		return fmt.Errorf("cell_width_in must be positive, got %f", *c.CellWidthInches)
	}
	if c.CellHeightInches != nil && *c.CellHeightInches <= 0 {
		return fmt.Errorf("cell_height_in must be positive, got %f", *c.CellHeightInches)
	}
	if c.FallbackCellSize != nil && *c.FallbackCellSize <= 0 {
		return fmt.Errorf("fallback_cell_size must be positive, got %f", *c.FallbackCellSize)
	}
	if c.NeighborhoodRule != nil && *c.NeighborhoodRule != "4" && *c.NeighborhoodRule != "8" {
		return fmt.Errorf("neighborhood_rule must be \"4\" or \"8\", got %q", *c.NeighborhoodRule)
	}
	if c.Extension != nil && !strings.HasPrefix(*c.Extension, ".") {
		return fmt.Errorf("extension must start with a dot, got %q", *c.Extension)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetClassValue returns the class_value value or the default.
func (c *FigureConfig) GetClassValue() int {
	if c.ClassValue == nil {
		return 1 // urban
	}
	return *c.ClassValue
}

// GetDateOffset returns the date_offset value or the default.
func (c *FigureConfig) GetDateOffset() int {
	if c.DateOffset == nil {
		return 8
	}
	return *c.DateOffset
}

// GetDateLength returns the date_length value or the default.
func (c *FigureConfig) GetDateLength() int {
	if c.DateLength == nil {
		return 2
	}
	return *c.DateLength
}

// GetCellWidthInches returns the cell_width_in value or the default.
func (c *FigureConfig) GetCellWidthInches() float64 {
	if c.CellWidthInches == nil {
		return 6.4
	}
	return *c.CellWidthInches
}

// GetCellHeightInches returns the cell_height_in value or the default.
func (c *FigureConfig) GetCellHeightInches() float64 {
	if c.CellHeightInches == nil {
		return 4.8
	}
	return *c.CellHeightInches
}

// GetFallbackCellSize returns the fallback_cell_size value or the default.
func (c *FigureConfig) GetFallbackCellSize() float64 {
	if c.FallbackCellSize == nil {
		return 100 // CORINE land cover grid
	}
	return *c.FallbackCellSize
}

// GetNodata returns the nodata value or the default.
func (c *FigureConfig) GetNodata() int {
	if c.Nodata == nil {
		return 0
	}
	return *c.Nodata
}

// GetNeighborhoodRule returns the neighborhood_rule value or the default.
func (c *FigureConfig) GetNeighborhoodRule() string {
	if c.NeighborhoodRule == nil {
		return "8"
	}
	return *c.NeighborhoodRule
}

// GetCountBoundary returns the count_boundary value or the default.
func (c *FigureConfig) GetCountBoundary() bool {
	if c.CountBoundary == nil {
		return false
	}
	return *c.CountBoundary
}

// GetExtension returns the extension value or the default.
func (c *FigureConfig) GetExtension() string {
	if c.Extension == nil {
		return ".tif"
	}
	return *c.Extension
}

// GetWorkers returns the workers value or the default; 0 means one worker
// per CPU.
func (c *FigureConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
