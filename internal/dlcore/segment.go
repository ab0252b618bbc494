package dlcore

// MinSegmentBytes is the floor below which a file is not split further,
// so tiny files aren't over-segmented into dozens of tiny range requests.
// Decided in DESIGN.md (spec.md §3 suggests 1 MiB).
const MinSegmentBytes int64 = 1 << 20

// PlanSegments partitions [0, totalSize) into N contiguous, disjoint
// ranges. N is min(configuredSplit, max(1, ceil(totalSize/MinSegmentBytes))).
// When totalSize is unknown (< 0) or the server refuses ranges, the plan
// degenerates to one segment covering the whole body. For an unknown size
// that segment has End = -1, so Length() reports 0 until the streaming
// path discovers the true end; the FileDownloader marks either case as
// streaming via DownloadState.Streaming.
func PlanSegments(totalSize int64, configuredSplit int, acceptsRange bool) []SegmentState {
	if configuredSplit < 1 {
		configuredSplit = 1
	}
	if totalSize <= 0 || !acceptsRange {
		end := totalSize - 1
		if totalSize <= 0 {
			end = -1 // size unknown; streaming mode discovers the true end
		}
		return []SegmentState{{Index: 0, Start: 0, End: end}}
	}

	n := configuredSplit
	byFloor := int((totalSize + MinSegmentBytes - 1) / MinSegmentBytes)
	if byFloor < 1 {
		byFloor = 1
	}
	if byFloor < n {
		n = byFloor
	}
	if n < 1 {
		n = 1
	}

	segments := make([]SegmentState, n)
	base := totalSize / int64(n)
	remainder := totalSize % int64(n)
	var start int64
	for i := 0; i < n; i++ {
		size := base
		if int64(i) < remainder {
			size++
		}
		end := start + size - 1
		segments[i] = SegmentState{Index: i, Start: start, End: end}
		start = end + 1
	}
	return segments
}
