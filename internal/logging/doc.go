// Package logging configures the process-wide slog logger for corpusidx.
//
// Records go to stderr as text by default, or as JSON when requested. When a
// log file is configured, every record is also appended to that file, which
// rotates by size so long indexing runs cannot fill the disk.
package logging
