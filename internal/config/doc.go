// SPDX-License-Identifier: MPL-2.0

// Package config implements layered project configuration.
//
// Configuration is expressed as ordered YAML documents (builtin defaults, an
// optional preset fragment, the project vm.yaml) parsed into a closed Value
// union and folded with Merge. Merge treats an empty object or array in an
// overlay as a mixin sentinel ("inherit the base"), unions arrays as sets,
// and lets scalars in later layers override earlier ones. The merged result
// is immutable for the rest of the invocation.
//
// User-scoped settings (default provider, extra mount roots, port range
// defaults) live outside the per-project layers and are loaded with Viper
// from ~/.vm/settings.yaml.
package config
