// Package cli provides the interactive PixelVault command-line client.
//
// It wires configuration, the local sync ledger, the catalog API client and
// the object store into an interactive REPL. Typical flow: sign in, run a
// sync pass, browse the ledger, fetch full-resolution files on demand.
//
// Key features:
//   - Login / Logout (stored between runs)
//   - Sync with cancellation and live progress
//   - List / Count ledger records
//   - Download / Delete individual photos
//   - Usage report and local data wipe
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
