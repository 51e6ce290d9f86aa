package crawler

import (
	"sync"

	"github.com/nao1215/newscrawl/internal/model"
)

// Queue is a FIFO of article links. Pushing a link that is already queued
// keeps both entries; Remove drops every occurrence so the link is only
// processed once.
type Queue struct {
	links []string
}

// Push appends link.
func (q *Queue) Push(link string) {
	q.links = append(q.links, link)
}

// Peek returns the oldest link without removing it.
func (q *Queue) Peek() (string, bool) {
	if len(q.links) == 0 {
		return "", false
	}
	return q.links[0], true
}

// Remove drops every occurrence of link and returns how many were removed.
func (q *Queue) Remove(link string) int {
	kept := q.links[:0]
	removed := 0
	for _, l := range q.links {
		if l == link {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	q.links = kept
	return removed
}

// Contains reports whether link is queued.
func (q *Queue) Contains(link string) bool {
	for _, l := range q.links {
		if l == link {
			return true
		}
	}
	return false
}

// Len returns the number of queued entries, duplicates included.
func (q *Queue) Len() int {
	return len(q.links)
}

// Links returns a copy of the queued entries in order.
func (q *Queue) Links() []string {
	return append([]string(nil), q.links...)
}

// ArticleSet is an insertion-ordered map of records keyed by link.
type ArticleSet struct {
	order  []string
	byLink map[string]*model.ArticleRecord
}

// Add stores rec unless a record for its link already exists. It reports
// whether rec was stored.
func (s *ArticleSet) Add(rec model.ArticleRecord) bool {
	if s.byLink == nil {
		s.byLink = make(map[string]*model.ArticleRecord)
	}
	if _, ok := s.byLink[rec.Link]; ok {
		return false
	}
	s.byLink[rec.Link] = &rec
	s.order = append(s.order, rec.Link)
	return true
}

// Get returns the record for link. The returned pointer is live.
func (s *ArticleSet) Get(link string) (*model.ArticleRecord, bool) {
	rec, ok := s.byLink[link]
	return rec, ok
}

// Len returns the number of records.
func (s *ArticleSet) Len() int {
	return len(s.order)
}

// Records returns copies of all records in insertion order.
func (s *ArticleSet) Records() []model.ArticleRecord {
	out := make([]model.ArticleRecord, 0, len(s.order))
	for _, link := range s.order {
		out = append(out, *s.byLink[link])
	}
	return out
}

// WorkingSet is the per-round crawl state shared by the list fetcher and the
// article extractor.
type WorkingSet struct {
	mu         sync.Mutex
	queue      Queue
	articles   ArticleSet
	duplicates int
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{}
}

// Enqueue records the stub and queues its link. A link that is already
// queued is queued again and counted as a duplicate; the first stub wins.
func (w *WorkingSet) Enqueue(rec model.ArticleRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.queue.Contains(rec.Link) {
		w.duplicates++
	}
	w.articles.Add(rec)
	w.queue.Push(rec.Link)
}

// Next returns the oldest queued link.
func (w *WorkingSet) Next() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Peek()
}

// Done removes link from the queue.
func (w *WorkingSet) Done(link string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queue.Remove(link)
}

// Update applies fn to the record for link under the lock. It reports
// whether the record exists.
func (w *WorkingSet) Update(link string, fn func(*model.ArticleRecord)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.articles.Get(link)
	if !ok {
		return false
	}
	fn(rec)
	return true
}

// Record returns a copy of the record for link.
func (w *WorkingSet) Record(link string) (model.ArticleRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.articles.Get(link)
	if !ok {
		return model.ArticleRecord{}, false
	}
	return *rec, true
}

// QueueLen returns the number of queued entries.
func (w *WorkingSet) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Len()
}

// QueuedLinks returns the queued entries in order.
func (w *WorkingSet) QueuedLinks() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Links()
}

// Duplicates returns how many enqueues hit an already queued link.
func (w *WorkingSet) Duplicates() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duplicates
}

// Articles returns the round payload in insertion order.
func (w *WorkingSet) Articles() []model.ArticleRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.articles.Records()
}
