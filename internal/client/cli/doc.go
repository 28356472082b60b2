// Package cli provides the interactive havengate shell.
//
// NewApp opens the local database, imports legacy user files once and wires
// the gate. RequireLogin either bootstraps the owner account (when the
// installation has none) or asks for credentials; the REPL started by Run
// then serves a handful of account and audit commands until the operator
// exits.
package cli
