package logger

import (
	logopts "github.com/kart-io/sentinel-kb/pkg/options/logger"
)

// Options is the logger configuration used by the reloadable manager.
// Re-exported from pkg/options/logger so callers only need one import.
type Options = logopts.Options

// NewOptions creates logger options with defaults.
var NewOptions = logopts.NewOptions
