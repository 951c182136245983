package collect

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/rotisserie/eris"
)

var ErrMaxPages = eris.New("max page limit reached")

// Task is the crawl of one institution's roster.
type Task struct {
	Institution string // canonical uppercase name
	Url         string // first roster page
	MaxPages    int    // hard ceiling on pages followed
	Visited     map[string]bool
}

func NewTask(institution, url string, maxPages int) *Task {
	return &Task{
		Institution: institution,
		Url:         url,
		MaxPages:    maxPages,
		Visited:     make(map[string]bool),
	}
}

// Request is a single roster page fetch within a task.
type Request struct {
	Task *Task
	Url  string
	Seq  int // page sequence number, 0 for the first page
}

func (t *Task) RootReq() *Request {
	return &Request{Task: t, Url: t.Url}
}

// Next builds the request for the following page.
func (r *Request) Next(url string) *Request {
	return &Request{Task: r.Task, Url: url, Seq: r.Seq + 1}
}

func (r *Request) Check() error {
	if r.Task.MaxPages > 0 && r.Seq >= r.Task.MaxPages {
		return eris.Wrapf(ErrMaxPages, "%s: %d pages", r.Task.Institution, r.Task.MaxPages)
	}
	return nil
}

// Unique identifies the request by URL.
func (r *Request) Unique() string {
	block := md5.Sum([]byte(r.Url))
	return hex.EncodeToString(block[:])
}

// MarkVisited records the request and reports whether it was already seen.
func (r *Request) MarkVisited() bool {
	key := r.Unique()
	if r.Task.Visited[key] {
		return true
	}
	r.Task.Visited[key] = true
	return false
}
