package slab

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
)

// WriteHeapProfile serializes the allocator's per-size-class statistics
// as a pprof profile, so `go tool pprof` can inspect the kernel heap's
// live-object and live-byte counts the same way it would inspect a
// hosted Go program's runtime/pprof heap profile — the natural stand-in
// for that facility in a kernel with no hosted runtime underneath it.
func (a *Allocator) WriteHeapProfile(w io.Writer) error {
	stats := a.Stats()

	objectsType := &profile.ValueType{Type: "objects", Unit: "count"}
	bytesType := &profile.ValueType{Type: "space", Unit: "bytes"}

	functions := make([]*profile.Function, 0, len(stats))
	locations := make([]*profile.Location, 0, len(stats))
	samples := make([]*profile.Sample, 0, len(stats))

	for i, s := range stats {
		fn := &profile.Function{
			ID:   uint64(i + 1),
			Name: classLabel(s.CellSize),
		}
		functions = append(functions, fn)

		loc := &profile.Location{
			ID:   uint64(i + 1),
			Line: []profile.Line{{Function: fn}},
		}
		locations = append(locations, loc)

		samples = append(samples, &profile.Sample{
			Location: []*profile.Location{loc},
			Value: []int64{
				int64(s.Allocated),
				int64(s.Allocated) * int64(s.CellSize),
			},
		})
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{objectsType, bytesType},
		Sample:     samples,
		Function:   functions,
		Location:   locations,
		PeriodType: objectsType,
		Period:     1,
	}

	return p.Write(w)
}

// classLabel names a size class the way a pprof viewer would show a
// call-stack frame, e.g. "class-0x1000".
func classLabel(cellSize uint64) string {
	return fmt.Sprintf("class-0x%x", cellSize)
}
