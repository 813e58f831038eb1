// SPDX-License-Identifier: MPL-2.0

// Package issue maps failure classes to rendered remediation guidance.
// Errors carry an issue id; the CLI renders the matching catalog entry
// beneath the diagnostic so the user gets recovery steps, not just a
// message.
package issue
