package portfolio

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

//go:embed sample.yaml
var sampleYAML []byte

var loadSample = sync.OnceValues(func() (*Document, error) {
	return ParseYAML(sampleYAML)
})

// ParseYAML decodes a document from YAML and validates it.
func ParseYAML(b []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, xerrors.Wrap(err, "decode yaml document")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Sample returns a fresh copy of the bundled fallback document.
// It panics if the embedded file is malformed, which is a build defect.
func Sample() *Document {
	d, err := loadSample()
	if err != nil {
		panic("portfolio: embedded sample: " + err.Error())
	}
	return d.Clone()
}
