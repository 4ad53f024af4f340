package backtest

import (
	"fmt"
	"strings"
)

// AlignmentError reports an empty or too-short date intersection across the
// requested assets.
type AlignmentError struct {
	Codes   []string
	Overlap int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("insufficient date overlap (%d common dates) across assets [%s]",
		e.Overlap, strings.Join(e.Codes, ", "))
}

// ConfigurationError reports an invalid weight set or a missing initial-date
// price. It fails the run it belongs to; a grid sweep records and skips it.
type ConfigurationError struct {
	Code   string // offending asset, if any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("invalid configuration for %s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}
