package crawler

import (
	"slices"
	"testing"

	"github.com/nao1215/newscrawl/internal/model"
)

func TestQueue(t *testing.T) {
	t.Parallel()

	var q Queue
	if _, ok := q.Peek(); ok {
		t.Error("empty queue should have nothing to peek")
	}

	for _, l := range []string{"a", "b", "a", "c"} {
		q.Push(l)
	}
	if q.Len() != 4 {
		t.Errorf("duplicates should be kept, got len %d", q.Len())
	}
	if head, _ := q.Peek(); head != "a" {
		t.Errorf("Peek() = %q, want a", head)
	}

	if n := q.Remove("a"); n != 2 {
		t.Errorf("Remove() removed %d, want 2", n)
	}
	if got := q.Links(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Links() = %v", got)
	}
	if q.Contains("a") {
		t.Error("a should be gone")
	}
	if n := q.Remove("missing"); n != 0 {
		t.Errorf("Remove(missing) = %d", n)
	}
}

func TestArticleSet(t *testing.T) {
	t.Parallel()

	var s ArticleSet
	if !s.Add(model.ArticleRecord{Link: "x", Title: "first"}) {
		t.Error("first add should succeed")
	}
	s.Add(model.ArticleRecord{Link: "y", Title: "other"})
	if s.Add(model.ArticleRecord{Link: "x", Title: "second"}) {
		t.Error("second add for the same link should be rejected")
	}

	rec, ok := s.Get("x")
	if !ok || rec.Title != "first" {
		t.Errorf("first stub should win, got %+v", rec)
	}

	rec.Author = "live"
	records := s.Records()
	if len(records) != 2 || records[0].Link != "x" || records[1].Link != "y" {
		t.Errorf("insertion order lost: %+v", records)
	}
	if records[0].Author != "live" {
		t.Error("Get should return a live pointer")
	}
}

func TestWorkingSet(t *testing.T) {
	t.Parallel()

	w := NewWorkingSet()
	w.Enqueue(model.ArticleRecord{Link: "a", Title: "A"})
	w.Enqueue(model.ArticleRecord{Link: "b", Title: "B"})
	w.Enqueue(model.ArticleRecord{Link: "a", Title: "A again"})

	if w.Duplicates() != 1 {
		t.Errorf("Duplicates() = %d, want 1", w.Duplicates())
	}
	if w.QueueLen() != 3 {
		t.Errorf("QueueLen() = %d, want 3", w.QueueLen())
	}
	if got := w.Articles(); len(got) != 2 || got[0].Title != "A" {
		t.Errorf("Articles() = %+v", got)
	}

	w.Done("a")
	if got := w.QueuedLinks(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("QueuedLinks() = %v", got)
	}

	if !w.Update("b", func(r *model.ArticleRecord) { r.CID = "bafy" }) {
		t.Error("Update should find b")
	}
	if rec, _ := w.Record("b"); rec.CID != "bafy" {
		t.Errorf("update not applied: %+v", rec)
	}
	if w.Update("zzz", func(*model.ArticleRecord) {}) {
		t.Error("Update should report missing records")
	}
}
