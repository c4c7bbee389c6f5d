package portfolio

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDocument wraps every validation failure.
var ErrInvalidDocument = errors.New("invalid document")

// Validate checks the invariants the remote store does not enforce: ids are
// unique within each section and non-blank URL fields hold http(s) URLs. All problems
// are reported together.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	var errs []error
	if d.Logs < 0 {
		errs = append(errs, fmt.Errorf("logs must not be negative (got %d)", d.Logs))
	}

	seen := map[int64]bool{}
	for i, e := range d.Experiences {
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("experiences[%d]: duplicate id %d", i, e.ID))
		}
		seen[e.ID] = true
		if err := checkImage(e.Image); err != nil {
			errs = append(errs, fmt.Errorf("experiences[%d].image: %w", i, err))
		}
	}

	seen = map[int64]bool{}
	for i, e := range d.Education {
		if seen[e.ID] {
			errs = append(errs, fmt.Errorf("education[%d]: duplicate id %d", i, e.ID))
		}
		seen[e.ID] = true
		if err := checkImage(e.Image); err != nil {
			errs = append(errs, fmt.Errorf("education[%d].image: %w", i, err))
		}
	}

	seen = map[int64]bool{}
	for i, p := range d.Projects {
		if seen[p.ID] {
			errs = append(errs, fmt.Errorf("projects[%d]: duplicate id %d", i, p.ID))
		}
		seen[p.ID] = true
		if err := checkOptionalURL(p.Link); err != nil {
			errs = append(errs, fmt.Errorf("projects[%d].link: %w", i, err))
		}
		if err := checkOptionalURL(p.GitHub); err != nil {
			errs = append(errs, fmt.Errorf("projects[%d].github: %w", i, err))
		}
		for j, shot := range p.Screenshots {
			if shot == "" {
				errs = append(errs, fmt.Errorf("projects[%d].screenshots[%d]: empty", i, j))
				continue
			}
			if err := checkImage(shot); err != nil {
				errs = append(errs, fmt.Errorf("projects[%d].screenshots[%d]: %w", i, j, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(errs...))
	}
	return nil
}

func checkURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("want an absolute http(s) URL, got %q", s)
	}
	return nil
}

// checkOptionalURL accepts nil and "" as absent. Blank strings are kept as
// they are so a fetched document saves back unchanged.
func checkOptionalURL(s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	return checkURL(*s)
}

// images may also be site-relative paths to bundled assets
func checkImage(s string) error {
	if s == "" || (strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")) {
		return nil
	}
	return checkURL(s)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
