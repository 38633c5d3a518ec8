// Package importer orchestrates the import of a scanned plan into the
// remote knowledge service.
//
// Knowledge bases are processed one at a time in plan order; within a base,
// file uploads run through a bounded worker pool whose lifetime is scoped to
// that base. Every remote operation goes through the retry policy, and every
// planned file produces exactly one outcome in the final summary. Once the
// initial health check passes, a run never fails as a whole: partial failure
// is represented in the summary.
package importer
