// Package cli is the interactive moments client.
//
// It wires configuration, the local store, the optional remote backend, the
// lifecycle manager, the password gate and the share settings behind a
// small REPL. Typical flow: list memories, unlock an edit session, add or
// edit memories, share a date range, export or push the collection.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or ctx is cancelled. See App and runREPL for details.
package cli
