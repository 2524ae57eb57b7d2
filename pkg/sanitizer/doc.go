// Package sanitizer normalizes client-supplied booking input before validation
// and storage.
//
// All normalization functions are idempotent. Invalid input yields an empty
// string rather than an error so that validators report it uniformly.
//
// Normalization includes:
//   - Phone numbers: E.164, Peruvian national numbers accepted without prefix
//   - Document numbers: uppercase alphanumerics, separators removed
//   - Names: whitespace collapsed and trimmed
//   - Emails: trimmed and lowercased
package sanitizer
