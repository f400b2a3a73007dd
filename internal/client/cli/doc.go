// Package cli provides the interactive auditkeeper command-line client.
//
// It wires configuration, the local cache, the remote client, the sync
// orchestrator and the connectivity monitor, then runs a REPL. Typical flow:
// log in (online with offline fallback), start the monitor in the
// background, and execute audit commands. Every command works offline; the
// prompt shows the current sync status.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
