package portfolio

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Clone returns a deep copy of d. Nil slices stay nil so the copy encodes
// exactly like the original.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		About: About{
			Intro:     d.About.Intro,
			Skills:    slices.Clone(d.About.Skills),
			Interests: slices.Clone(d.About.Interests),
		},
		Logs: d.Logs,
	}
	if d.Experiences != nil {
		out.Experiences = make([]Experience, len(d.Experiences))
		for i, e := range d.Experiences {
			e.Technologies = slices.Clone(e.Technologies)
			out.Experiences[i] = e
		}
	}
	if d.Education != nil {
		out.Education = make([]Education, len(d.Education))
		for i, e := range d.Education {
			e.Field = clonePtr(e.Field)
			e.Achievements = slices.Clone(e.Achievements)
			out.Education[i] = e
		}
	}
	if d.Projects != nil {
		out.Projects = make([]Project, len(d.Projects))
		for i, p := range d.Projects {
			p.Technologies = slices.Clone(p.Technologies)
			p.Link = clonePtr(p.Link)
			p.GitHub = clonePtr(p.GitHub)
			p.Screenshots = slices.Clone(p.Screenshots)
			out.Projects[i] = p
		}
	}
	return out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Equal reports whether a and b encode to the same JSON.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// Hash returns the hex SHA-256 of the document's JSON encoding.
func (d *Document) Hash() string {
	b, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return sha256Hex(b)
}
