// Package media holds the disk images attached to a VM and loads them from
// user supplied files.
package media

import (
	"strings"
	"sync"
)

// Slot names the drive an image is attached to.
type Slot int

const (
	CDROM Slot = iota
	HDA
)

func (s Slot) String() string {
	switch s {
	case CDROM:
		return "cdrom"
	case HDA:
		return "hda"
	default:
		return "unknown"
	}
}

// ParseSlot is the inverse of Slot.String.
func ParseSlot(name string) (Slot, bool) {
	switch name {
	case "cdrom":
		return CDROM, true
	case "hda":
		return HDA, true
	}
	return 0, false
}

var cdromExts = map[string]bool{
	"iso": true,
	"img": true,
	"bin": true,
	"raw": true,
}

// Classify picks the slot for a dropped file by the text after its last
// dot, or its whole name when it has none.
func Classify(name string) Slot {
	ext := strings.ToLower(name)
	if i := strings.LastIndexByte(ext, '.'); i >= 0 {
		ext = ext[i+1:]
	}
	if cdromExts[ext] {
		return CDROM
	}
	return HDA
}

type Image struct {
	Name string
	Data []byte
}

// Slots holds at most one image per slot. Reads and replacements are
// atomic per slot.
type Slots struct {
	mu        sync.Mutex
	images    [2]*Image
	started   [2]uint64
	committed [2]uint64
}

// Get returns the image in slot s, or nil.
func (m *Slots) Get(s Slot) *Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.images[s]
}

// Set replaces the image in slot s unconditionally.
func (m *Slots) Set(s Slot, img *Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[s]++
	m.committed[s] = m.started[s]
	m.images[s] = img
}

// Empty reports whether no slot holds an image.
func (m *Slots) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.images[CDROM] == nil && m.images[HDA] == nil
}

// begin reserves a sequence number for a load into s.
func (m *Slots) begin(s Slot) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[s]++
	return m.started[s]
}

// commit stores img if no load that began after seq has been committed.
func (m *Slots) commit(s Slot, seq uint64, img *Image) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq < m.committed[s] {
		return false
	}
	m.committed[s] = seq
	m.images[s] = img
	return true
}
