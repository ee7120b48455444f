/*
Package stream is the push model runtime smelter builds on.

A Stage reads files from an input channel and pushes results to an output
channel. Channels are unbuffered, so a slow consumer holds back its
producers. The runtime owns every channel it hands out: a stage never closes
its output, it simply returns once its input is exhausted.

	upper := stream.Map("upper", func(f *record.File) *record.File {
		f.Contents = bytes.ToUpper(f.Contents)
		return f
	})
	chain := stream.NewChain("site", upper, stream.Filter("no-drafts", notDraft))
	out, err := stream.Drain(ctx, chain, files)

The first error raised anywhere in a run wins. The run context is cancelled,
remaining input is discarded and later errors are dropped.
*/
package stream
