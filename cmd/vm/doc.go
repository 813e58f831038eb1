// SPDX-License-Identifier: MPL-2.0

// Package cmd wires the vm CLI: lifecycle verbs that flow through the
// provider router, plus inspection commands for configuration, mounts,
// and the port registry.
package cmd
