// Package bridge connects the streaming file model to the batch engine.
//
// Two directions are supported:
//
//   - Adapter is a stream.Stage that buffers its whole input into a
//     record.FileTree, runs the engine once, and re-emits the result.
//     Files missing from the result are deletions and are not emitted.
//   - StreamStep is an engine.Step that pushes the engine's tree through a
//     chain of streaming stages and writes the output back into the tree.
//     Pipe builds one; Extend derives a longer one and leaves the receiver
//     as it was.
//
// Pipeline is the entry point for stream consumers: it owns a fresh engine
// and the Adapter bound to it.
package bridge
