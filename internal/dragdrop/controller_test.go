package dragdrop

import (
	"strings"
	"testing"
)

// list is a minimal Reorderer over letters.
type list []string

func (l *list) Len() int { return len(*l) }

func (l *list) Reorder(from, to int) bool {
	s := *l
	if from == to || from < 0 || to < 0 || from >= len(s) || to >= len(s) {
		return false
	}
	item := s[from]
	s = append(s[:from], s[from+1:]...)
	s = append(s[:to], append([]string{item}, s[to:]...)...)
	*l = s
	return true
}

func (l *list) String() string { return strings.Join(*l, "") }

func TestController_EagerHoverSequence(t *testing.T) {
	l := &list{"A", "B", "C", "D"}
	c := New(l)

	if !c.Start(0) {
		t.Fatal("Start failed")
	}
	c.Over(1)
	if l.String() != "BACD" || c.Index() != 1 {
		t.Fatalf("after hover 1: %s idx=%d", l, c.Index())
	}
	c.Over(2)
	if l.String() != "BCAD" || c.Index() != 2 {
		t.Fatalf("after hover 2: %s idx=%d", l, c.Index())
	}
	c.End()

	if l.String() != "BCAD" {
		t.Errorf("final order = %s, want BCAD", l)
	}
	if c.Active() || c.Index() != -1 {
		t.Error("controller should be idle after End")
	}
}

func TestController_HoverSameIndexIsNoop(t *testing.T) {
	l := &list{"A", "B", "C"}
	c := New(l)
	c.Start(1)
	if c.Over(1) {
		t.Error("hover over own position should not reorder")
	}
	if l.String() != "ABC" {
		t.Errorf("order = %s", l)
	}
}

func TestController_MoveBackAndForth(t *testing.T) {
	l := &list{"A", "B", "C", "D", "E"}
	c := New(l)
	c.Start(4)
	for _, h := range []int{3, 2, 1, 2, 3, 1} {
		c.Over(h)
	}
	c.End()
	if l.String() != "AEBCD" {
		t.Errorf("order = %s, want AEBCD", l)
	}
}

func TestController_IgnoresEventsWithoutStart(t *testing.T) {
	l := &list{"A", "B"}
	c := New(l)
	if c.Over(1) {
		t.Error("Over without Start should be ignored")
	}
	if c.Start(5) || c.Start(-1) {
		t.Error("Start out of range should fail")
	}
	if l.String() != "AB" {
		t.Errorf("order = %s", l)
	}
}

func TestController_OutOfRangeHover(t *testing.T) {
	l := &list{"A", "B", "C"}
	c := New(l)
	c.Start(0)
	if c.Over(7) {
		t.Error("out-of-range hover should not reorder")
	}
	if c.Index() != 0 {
		t.Errorf("index = %d, want 0", c.Index())
	}
}
