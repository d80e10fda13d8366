//go:build dev || debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Debug for development builds, selected via the
// "dev"/"debug" build tags.
var defaultLevel = zerolog.DebugLevel
