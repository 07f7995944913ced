// Package domain defines the core domain types for the lagom manifest service.
//
// This package contains the entities and value objects that represent a
// Python dependency manifest: versions, specifiers, requirements, manifests,
// and lint findings.
//
// # Core Types
//
// Version is a PEP 440 version with total ordering (epoch, release segments,
// pre/post/dev releases, local tag).
//
// Specifier is a single comparator clause (">=1.16", "~=2.4.1", "==1.4.*")
// that can be matched against a Version.
//
// Requirement is one manifest line: a package name with optional extras,
// a conjunction of specifiers, and an optional environment marker.
//
// Manifest is an ordered collection of requirements grouped under the
// comment headers of the source file.
//
// # Findings
//
// Finding records a lint result against a manifest line. Findings carry a
// rule identifier and severity and support a resolution workflow.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or external dependencies
// - Pure domain logic without infrastructure concerns
package domain
