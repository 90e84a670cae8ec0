// Package dump is the extraction engine of schemagit.
//
// An Orchestrator runs the phases of a plan one after another. Each phase
// dumps one object type with N shard workers running concurrently, worker i
// on pool slot i, and returns only when all N have terminated. A Worker runs
// the object type's query restricted to its shard and writes one file per
// returned object through a Normalizer, which enforces CRLF line endings.
//
// Failure handling is first-error-wins: the first shard error cancels the
// phase context, the remaining workers stop after the file they are writing,
// and the error is returned with the object type and shard index attached.
// Files already written are left on disk.
package dump
