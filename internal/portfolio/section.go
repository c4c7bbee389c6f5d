package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Section names one editable top-level field of a Document.
type Section string

const (
	SectionExperiences Section = "experiences"
	SectionEducation   Section = "education"
	SectionProjects    Section = "projects"
	SectionAbout       Section = "about"
)

// ErrUnknownSection is returned for section names outside the editable set.
var ErrUnknownSection = errors.New("unknown section")

// ParseSection validates a section name from user input.
func ParseSection(s string) (Section, error) {
	switch Section(s) {
	case SectionExperiences, SectionEducation, SectionProjects, SectionAbout:
		return Section(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownSection, s)
}

// IsList reports whether the section is an ordered list of items.
func (s Section) IsList() bool { return s != SectionAbout }

// WithSection returns a copy of d whose section is replaced by the decoded
// value. List items with a zero id get a fresh one. The result is validated
// and d is never modified.
func (d *Document) WithSection(section Section, raw json.RawMessage, now time.Time) (*Document, error) {
	out := d.Clone()
	switch section {
	case SectionExperiences:
		var v []Experience
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		assignIDs(v, func(e *Experience) *int64 { return &e.ID }, now)
		out.Experiences = v
	case SectionEducation:
		var v []Education
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		assignIDs(v, func(e *Education) *int64 { return &e.ID }, now)
		out.Education = v
	case SectionProjects:
		var v []Project
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		assignIDs(v, func(p *Project) *int64 { return &p.ID }, now)
		out.Projects = v
	case SectionAbout:
		var v About
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		out.About = v
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSection, section)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithItem returns a copy of d with one new item added to the front of a
// list section. New items always get a fresh id.
func (d *Document) WithItem(section Section, raw json.RawMessage, now time.Time) (*Document, error) {
	out := d.Clone()
	switch section {
	case SectionExperiences:
		var v Experience
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		v.ID = 0
		out.Experiences = prepend(out.Experiences, v)
		assignIDs(out.Experiences, func(e *Experience) *int64 { return &e.ID }, now)
	case SectionEducation:
		var v Education
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		v.ID = 0
		out.Education = prepend(out.Education, v)
		assignIDs(out.Education, func(e *Education) *int64 { return &e.ID }, now)
	case SectionProjects:
		var v Project
		if err := decodeStrict(raw, &v); err != nil {
			return nil, err
		}
		v.ID = 0
		out.Projects = prepend(out.Projects, v)
		assignIDs(out.Projects, func(p *Project) *int64 { return &p.ID }, now)
	default:
		return nil, fmt.Errorf("%w %q: not a list", ErrUnknownSection, section)
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func prepend[T any](list []T, v T) []T {
	return append([]T{v}, list...)
}

// NewID returns the creation-time id for a new list item.
func NewID(now time.Time) int64 { return now.UnixMilli() }

// assignIDs gives every zero id a timestamp id, bumping past ids already in
// use so items added within the same millisecond stay unique.
func assignIDs[T any](items []T, id func(*T) *int64, now time.Time) {
	used := make(map[int64]bool, len(items))
	for i := range items {
		if v := *id(&items[i]); v != 0 {
			used[v] = true
		}
	}
	next := NewID(now)
	for i := range items {
		p := id(&items[i])
		if *p != 0 {
			continue
		}
		for used[next] {
			next++
		}
		*p = next
		used[next] = true
	}
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty section value", ErrInvalidDocument)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode section value: %w", ErrInvalidDocument, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after section value", ErrInvalidDocument)
	}
	return nil
}
