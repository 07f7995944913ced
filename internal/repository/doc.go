// Package repository defines the persistence interface for manifests,
// requirements, and lint findings. The sqlite subpackage provides the
// production implementation.
package repository
