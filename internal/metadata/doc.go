// Package metadata implements core.MetadataProvider for the host layer.
//
// Two sources are supported: a YAML catalog file checked into the project
// (Catalog) and a read-only SQLite export of the remote platform's metadata
// (SQLiteProvider). Open picks one from the configured paths.
package metadata
