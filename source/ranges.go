package source

import "sort"

// ranges is a set of disjoint, sorted half-open byte spans.
type ranges struct {
	spans []Segment
}

func (r *ranges) add(start, end int64) {
	if end <= start {
		return
	}
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].End() >= start })
	j := i
	for j < len(r.spans) && r.spans[j].Offset <= end {
		start = min(start, r.spans[j].Offset)
		end = max(end, r.spans[j].End())
		j++
	}
	merged := Segment{Offset: start, Length: end - start}
	r.spans = append(r.spans[:i], append([]Segment{merged}, r.spans[j:]...)...)
}

func (r *ranges) contains(start, end int64) bool {
	if end <= start {
		return true
	}
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].End() > start })
	return i < len(r.spans) && r.spans[i].Offset <= start && r.spans[i].End() >= end
}

// missing returns the parts of [start, end) not in the set.
func (r *ranges) missing(start, end int64) []Segment {
	var out []Segment
	pos := start
	for _, s := range r.spans {
		if s.End() <= pos {
			continue
		}
		if s.Offset >= end {
			break
		}
		if s.Offset > pos {
			out = append(out, Segment{Offset: pos, Length: s.Offset - pos})
		}
		pos = max(pos, s.End())
		if pos >= end {
			break
		}
	}
	if pos < end {
		out = append(out, Segment{Offset: pos, Length: end - pos})
	}
	return out
}

func (r *ranges) covered() int64 {
	var n int64
	for _, s := range r.spans {
		n += s.Length
	}
	return n
}
