package dlcore

import "testing"

// P4: segment disjointness — segments partition [0, totalSize) with no
// overlap or gap.
func TestPlanSegmentsDisjointAndComplete(t *testing.T) {
	total := 4 * MinSegmentBytes
	segs := PlanSegments(total, 4, true)
	if len(segs) != 4 {
		t.Fatalf("len(segs) = %d, want 4", len(segs))
	}
	var want int64
	for i, seg := range segs {
		if seg.Start != want {
			t.Fatalf("segment %d starts at %d, want %d", i, seg.Start, want)
		}
		want = seg.End + 1
	}
	if want != total {
		t.Fatalf("segments cover up to %d, want %d", want, total)
	}
	for _, seg := range segs {
		if seg.Length() != MinSegmentBytes {
			t.Fatalf("segment length = %d, want %d", seg.Length(), MinSegmentBytes)
		}
	}
}

func TestPlanSegmentsFloorsTinyFiles(t *testing.T) {
	segs := PlanSegments(100, 8, true)
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1 (below MinSegmentBytes floor)", len(segs))
	}
}

func TestPlanSegmentsDegradesWithoutRangeSupport(t *testing.T) {
	segs := PlanSegments(10000, 4, false)
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1 when ranges unsupported", len(segs))
	}
}

func TestPlanSegmentsUnknownSize(t *testing.T) {
	segs := PlanSegments(-1, 4, true)
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1 when size unknown", len(segs))
	}
}

func TestPlanSegmentsSingleByteFile(t *testing.T) {
	segs := PlanSegments(1, 4, true)
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d, want 1 for a 1-byte file regardless of configured split", len(segs))
	}
	if segs[0].Length() != 1 {
		t.Fatalf("segment length = %d, want 1", segs[0].Length())
	}
}
