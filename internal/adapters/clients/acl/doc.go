// Package acl provides the Anti-Corruption Layer between the Zetl HTTP API
// and the domain model.
//
// External wire shapes (request payloads, error bodies, receipts) stay inside
// this package. Callers see domain.QuoteRecord, domain.SubmissionReceipt and
// *domain.SubmissionError only:
//
//   - 2xx → receipt decoded from the JSON object body
//   - non-2xx → SubmissionError carrying the status and raw body text
//   - no response (DNS, refused, timeout) → SubmissionError with StatusCode 0
//
// [BaseAdapter] holds the shared client plumbing; [Submitter] is the Zetl
// device endpoint adapter built on it.
package acl
