// Package event provides the store training record and the functions that operate on it.
//
// Each record is assigned a deterministic SHA1-based ID generated from its normalized store
// name, date and shift, so the same spreadsheet row maps to the same ID across loads. The
// package also handles spreadsheet date parsing, the past/upcoming classification relative
// to the current day, collection ordering and the diff between two loads.
package event
