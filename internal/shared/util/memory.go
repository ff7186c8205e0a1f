package util

import (
	"runtime"
)

// HeapStats is a point-in-time view of the Go heap, in MiB.
type HeapStats struct {
	AllocMB uint64
	SysMB   uint64
	NumGC   uint32
}

// ReadHeapStats samples the runtime memory statistics.
func ReadHeapStats() HeapStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return HeapStats{
		AllocMB: m.Alloc >> 20,
		SysMB:   m.Sys >> 20,
		NumGC:   m.NumGC,
	}
}
