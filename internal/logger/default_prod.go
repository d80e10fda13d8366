//go:build !dev && !debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Info for release builds (no "dev"/"debug" tag set).
var defaultLevel = zerolog.InfoLevel
