// Package cli parses make-figure's command line: two positional arguments,
// three greedy multi-value options and a handful of single-value flags. It
// also maps parse failures to process exit codes.
package cli
