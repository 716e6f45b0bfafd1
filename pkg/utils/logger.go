// Package utils provides shared helpers for logging, token counting, and
// vector math.
package utils

import "go.uber.org/zap"

// NewLogger returns a development logger (console output, debug level) when
// debug is set, otherwise a production logger (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
