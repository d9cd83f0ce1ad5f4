package logging

import "go.uber.org/zap"

// New returns a zap logger. When verbose is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func New(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
