// Package source provides byte transports for incremental loading.
//
// Every type here satisfies avail.IncrementalSource:
//
//	Simulated  in-memory bytes delivered explicitly, for tests and demos
//	File       a local file, always fully available
//	HTTP       a remote document fetched with range requests
//
// Sources never fetch from inside IsDataAvailable or RequestSegment. HTTP
// queues requested segments and fetches them when the caller runs Fetch.
package source

// Segment is a byte range [Offset, Offset+Length).
type Segment struct {
	Offset int64
	Length int64
}

// End returns the offset one past the segment.
func (s Segment) End() int64 { return s.Offset + s.Length }
