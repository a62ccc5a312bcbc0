// Package tilegrid loads the device database: every tile instance with its
// type, grid position, sites and the configuration address windows it
// occupies.
//
// The database is read once per run and never modified. Sites are indexed
// back to their owning tile so that feature observations recorded against a
// site can be validated and routed without scanning the grid.
package tilegrid
