// Package errs defines the typed error kinds spec.md §7 requires: ParseError,
// DuplicateImport, NoSuchExport, ModuleNotFound, and the reimplementation-
// specific NotSupported from §9. All carry a file and, where available, a
// source location, and are propagated unchanged to the Bundle.Build caller —
// none are recovered within the core except export-delegate search (§4.3).
package errs

import (
	"fmt"

	"github.com/flatbundle/flatbundle/internal/logger"
)

// ParseError wraps a failure from the parser backend.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s", e.File, e.Message)
}

// DuplicateImport is raised when a module declares the same local import
// name twice (spec §3 invariant, §4.2).
type DuplicateImport struct {
	File      string
	LocalName string
	Loc       logger.Loc
}

func (e *DuplicateImport) Error() string {
	return fmt.Sprintf("%s: duplicate import binding %q", e.File, e.LocalName)
}

// NoSuchExport is raised when a name is requested from a module that does
// not export it, directly or via any export-all delegate (spec §4.3).
type NoSuchExport struct {
	Module   string
	Name     string
	Importer string
}

func (e *NoSuchExport) Error() string {
	return fmt.Sprintf("%q does not export %q, imported from %q", e.Module, e.Name, e.Importer)
}

// ModuleNotFound is surfaced by the loader and propagated unchanged
// (spec §6, §7).
type ModuleNotFound struct {
	Specifier  string
	ImporterID string
}

func (e *ModuleNotFound) Error() string {
	if e.ImporterID == "" {
		return fmt.Sprintf("module not found: %q", e.Specifier)
	}
	return fmt.Sprintf("module not found: %q (imported from %q)", e.Specifier, e.ImporterID)
}

// NotSupported reports a source form the core does not handle. It is
// returned for an exported function/class declaration without a name and
// for an exported declaration of an unrecognised form.
type NotSupported struct {
	File   string
	Reason string
}

func (e *NotSupported) Error() string {
	return fmt.Sprintf("%s: not supported: %s", e.File, e.Reason)
}
