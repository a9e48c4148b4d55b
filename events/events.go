// Package events defines the upstream tag-source event stream (spec.md §6):
// the (timestamp, add|remove, tag) notifications that drive a Graph's
// online AddTag/RemoveTag calls. Producing or consuming this stream over a
// real transport is out of scope; this package only names the shape.
package events

import (
	"fmt"

	"github.com/sensorgnome-org/tagdfa/tag"
)

// Kind distinguishes an add event from a remove event.
type Kind int

const (
	Add Kind = iota
	Remove
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one upstream notification that a tag's registration should
// change, timestamped in the same units as tag.Tag's gaps.
type Event struct {
	Timestamp float64
	Kind      Kind
	Tag       *tag.Tag // set for Add; only Tag.ID need be valid for Remove
}

// Schedule is an ordered sequence of Events, as the original
// testAddRemoveTag.cpp harness replayed from a recorded or randomized
// schedule.
type Schedule []Event

// Validate reports whether the schedule is non-decreasing in Timestamp and
// every Add event carries a non-nil Tag.
func (s Schedule) Validate() error {
	last := -1.0
	for i, e := range s {
		if e.Timestamp < last {
			return fmt.Errorf("events: schedule not time-ordered at index %d (%.6f < %.6f)", i, e.Timestamp, last)
		}
		last = e.Timestamp
		if e.Kind == Add && e.Tag == nil {
			return fmt.Errorf("events: add event at index %d has no Tag", i)
		}
	}
	return nil
}
