// Package file provides the TOML-backed configuration store.
//
// Settings live in config.toml inside the ragingest config directory
// (~/.ragingest by default). Tables in the file map to dotted keys, so
//
//	[extract]
//	dpi = 300
//
// is read and written as "extract.dpi".
package file
