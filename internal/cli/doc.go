// Package cli implements the command-line interface for agenda.
//
// The cli package provides the Cobra-based CLI: listing trainings with filters and an
// optional position (text, JSON or iCalendar output, several sort orders), showing the
// filter options, locating the nearest training, serving the JSON API, and managing the
// cache and the page-view counters. Exit code 2 means the filters matched nothing.
package cli
