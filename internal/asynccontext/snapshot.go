package asynccontext

// entry is a single (channel, value) binding.
type entry struct {
	key   *Channel
	value any
}

// Snapshot is an immutable, ordered set of channel bindings. A nil *Snapshot is
// the empty sentinel. Each channel appears at most once and keys are compared
// by pointer identity only.
type Snapshot struct {
	entries []entry
}

// Len returns the number of bindings held by the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Channels returns the bound channels in binding order.
func (s *Snapshot) Channels() []*Channel {
	if s == nil {
		return nil
	}
	out := make([]*Channel, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.key
	}
	return out
}

func (s *Snapshot) indexOf(c *Channel) int {
	if s == nil {
		return -1
	}
	for i, e := range s.entries {
		if e.key == c {
			return i
		}
	}
	return -1
}

// locate prefers the hinted index and falls back to a scan.
func (s *Snapshot) locate(c *Channel, hint int) int {
	if s != nil && hint >= 0 && hint < len(s.entries) && s.entries[hint].key == c {
		return hint
	}
	return s.indexOf(c)
}

func (s *Snapshot) lookup(c *Channel) (any, bool) {
	i := s.indexOf(c)
	if i < 0 {
		return nil, false
	}
	return s.entries[i].value, true
}

// with binds c to value, replacing an existing slot in place or appending.
func (s *Snapshot) with(c *Channel, value any) *Snapshot {
	if s == nil {
		return &Snapshot{entries: []entry{{key: c, value: value}}}
	}
	if i := s.indexOf(c); i >= 0 {
		return s.replaceAt(i, value)
	}
	entries := make([]entry, len(s.entries), len(s.entries)+1)
	copy(entries, s.entries)
	return &Snapshot{entries: append(entries, entry{key: c, value: value})}
}

func (s *Snapshot) replaceAt(i int, value any) *Snapshot {
	entries := make([]entry, len(s.entries))
	copy(entries, s.entries)
	entries[i].value = value
	return &Snapshot{entries: entries}
}

// without drops slot i. Removing the last binding yields the empty sentinel.
func (s *Snapshot) without(i int) *Snapshot {
	if len(s.entries) == 1 {
		return nil
	}
	entries := make([]entry, 0, len(s.entries)-1)
	entries = append(entries, s.entries[:i]...)
	entries = append(entries, s.entries[i+1:]...)
	return &Snapshot{entries: entries}
}
