// Package remote defines the knowledge-service capability set consumed by
// the importer, together with the error taxonomy used to classify failures
// as transient (retryable) or permanent.
//
// The webui subpackage implements the Service interface against the Open
// WebUI REST API; the mock subpackage provides a test double.
package remote
