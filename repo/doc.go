// Package repo provides typed read access to the architecture map tables.
//
// The database is a Core Data export: tables carry the Z prefix
// (ZCDARCHITECT, ZCDBUILDING) and every row has a Z_PK integer key.
// Repositories translate those rows into plain structs and expose the
// filters the map UI needs.
package repo
