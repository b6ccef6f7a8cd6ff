// Package utils holds the concurrency, panic recovery and Parquet export
// helpers shared by the importer, the server and the CLI.
package utils
