// Package storage provides the time-boxed cache of the event collection.
//
// The cache holds two entries in a data directory: the JSON-encoded collection
// (agenda_allData_v1) and its capture time in epoch milliseconds (agenda_allData_time_v1).
// Entries older than the TTL (30 minutes by default) are treated as absent.
// The default location is ~/.cache/agenda/.
package storage
