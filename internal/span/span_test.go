package span

import "testing"

func TestOverlaps(t *testing.T) {
	a := &Span{CharacterStart: 10, CharacterEnd: 20}
	b := &Span{CharacterStart: 15, CharacterEnd: 25}
	c := &Span{CharacterStart: 20, CharacterEnd: 30}

	if !a.Overlaps(b) {
		t.Errorf("expected a to overlap b")
	}
	if a.Overlaps(c) {
		t.Errorf("half-open intervals touching at a boundary must not overlap")
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	p := NewPool()

	s := p.Acquire()
	s.Text = "JOHN SMITH"
	s.FilterType = Name
	s.CharacterStart = 9
	s.CharacterEnd = 19
	s.Context = "PATIENT: JOHN SMITH"

	p.Release(s)

	if s.Text != "" || s.Context != "" || s.FilterType != "" {
		t.Errorf("release did not clear PHI-bearing fields: %+v", s)
	}
	if s.CharacterStart != -1 || s.CharacterEnd != -1 {
		t.Errorf("release did not set sentinel positions: start=%d end=%d", s.CharacterStart, s.CharacterEnd)
	}

	reacquired := p.Acquire()
	if reacquired != s {
		t.Errorf("expected LIFO reuse of the released span")
	}
}

func TestPoolDoubleReleaseDebug(t *testing.T) {
	p := NewPool()
	p.SetDebug(true)

	s := p.Acquire()
	s.Text = "should be zeroed"

	p.Release(s)
	before := p.Len()
	p.Release(s) // double release, must be ignored
	if p.Len() != before {
		t.Errorf("double release changed pool length: before=%d after=%d", before, p.Len())
	}
}

func TestPoolDropsWhenFull(t *testing.T) {
	p := NewPoolSize(2)

	a, b, c := p.Acquire(), p.Acquire(), p.Acquire()
	p.Release(a)
	p.Release(b)
	p.Release(c) // pool full, should be dropped

	if p.Dropped() != 1 {
		t.Errorf("expected 1 dropped span, got %d", p.Dropped())
	}
	if p.Len() != 2 {
		t.Errorf("expected pool length 2, got %d", p.Len())
	}
}
