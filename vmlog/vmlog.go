// Package vmlog is the user-facing VM log: timestamped lines appended to a
// display panel.
package vmlog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Sink accepts log messages.
type Sink interface {
	Append(msg string)
}

// Panel is a display the log writes lines to.
type Panel interface {
	AppendText(s string)
	ScrollToEnd()
}

type Entry struct {
	Time    time.Time
	Message string
}

// Line formats the entry as it is shown in the panel.
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %s\n", e.Time.Format("15:04:05"), e.Message)
}

// Log is an append-only Sink. The zero value is usable.
type Log struct {
	// Now is used to timestamp entries, time.Now if nil.
	Now func() time.Time

	mu      sync.Mutex
	panels  []Panel
	entries []Entry
	subs    map[int]func(Entry)
	nextSub int
}

func New(panels ...Panel) *Log {
	return &Log{panels: panels}
}

func (l *Log) Append(msg string) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	e := Entry{Time: now(), Message: msg}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	panels := append([]Panel(nil), l.panels...)
	subs := make([]func(Entry), 0, len(l.subs))
	for i := 0; i < l.nextSub; i++ {
		if fn, ok := l.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	l.mu.Unlock()

	line := e.Line()
	for _, p := range panels {
		p.AppendText(line)
		p.ScrollToEnd()
	}
	for _, fn := range subs {
		fn(e)
	}
}

// Entries returns a copy of everything logged so far.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Text renders the whole log as it appears in the panel.
func (l *Log) Text() string {
	var b strings.Builder
	for _, e := range l.Entries() {
		b.WriteString(e.Line())
	}
	return b.String()
}

// Subscribe calls fn for each entry appended after the call, in
// subscription order.
func (l *Log) Subscribe(fn func(Entry)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]func(Entry))
	}
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}
