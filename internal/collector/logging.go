// Package collector implements the external sinks named in §L10 — trivial
// Result→void consumers plugged into processor.Extractor as a Collector.
// Grounded on the original pyoctopus's collector/logging_collector.py and
// collector/excel_collector.py, ported in the teacher's slog-everywhere idiom.
package collector

import "log/slog"

// Logging returns a Collector that logs each bound result at Info level.
// It never returns an error, so it never causes an Extractor to fail.
func Logging(logger *slog.Logger) func(result any) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "logging_collector")
	return func(result any) error {
		logger.Info("result bound", "result", result)
		return nil
	}
}
