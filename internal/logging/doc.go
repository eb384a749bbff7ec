// Package logging builds slog loggers for harvest.
//
// Two handler formats are supported: a compact console format intended
// for interactive runs (timestamp, level, component prefix, key=value
// attributes) and a JSON format for machine consumption. Components
// obtain scoped loggers through NewComponentLogger so every record
// carries a stable component attribute.
package logging
