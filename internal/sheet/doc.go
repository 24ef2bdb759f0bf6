// Package sheet fetches and parses the published training spreadsheet.
//
// The spreadsheet is maintained by hand, so everything here is lenient: the CSV scanner never
// fails, header names are matched case-insensitively through alias lists, and coordinates are
// recovered from whatever column happens to hold them. Rows keep their positional cells so
// callers can fall back to fixed column indexes when headers are renamed.
//
// Sources: HTTPSource (published CSV, the primary feed), JSONSource (Apps Script endpoint),
// and FileSource (local .csv or .xlsx, optionally watched for changes).
package sheet
