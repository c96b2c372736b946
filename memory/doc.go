// Package memory holds one conversation with the hosted assistant: the
// assistant definition, the thread, and the ordered history projected from it.
//
// Model:
//   - The runtime owns the messages. Nothing is persisted locally; History is
//     re-read from the runtime and reversed to oldest first.
//   - At most one run is active per thread. A Session serialises its turns and
//     rejects a concurrent caller with ErrThreadBusy.
package memory
