package fileid

import "testing"

func TestPointID_deterministic(t *testing.T) {
	a := PointID("u1", "report.pdf", "u1/report.pdf")
	b := PointID("u1", "report.pdf", "u1/report.pdf")
	if a != b {
		t.Errorf("same triple should yield same ID: %q vs %q", a, b)
	}
}

func TestPointID_distinct(t *testing.T) {
	ids := map[string]bool{
		PointID("u1", "report.pdf", "k"):                true,
		PointID("u2", "report.pdf", "k"):                true,
		PointID("u1", "report.pdf (Part 1/2)", "k#chunk_0"): true,
		PointID("u1", "report.pdf (Part 2/2)", "k#chunk_1"): true,
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct IDs, got %d", len(ids))
	}
}
