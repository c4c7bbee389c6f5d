package store

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

const DefaultJSONBinEndpoint = "https://api.jsonbin.io/v3"

type JSONBinOptions struct {
	// Endpoint is the API base, e.g. https://api.jsonbin.io/v3
	Endpoint  string
	AccessKey string
	BinID     string

	Client   *http.Client
	Recorder Recorder
}

func (o *JSONBinOptions) setDefaults() {
	if o.Endpoint == "" {
		o.Endpoint = DefaultJSONBinEndpoint
	}
	o.Endpoint = strings.TrimRight(o.Endpoint, "/")
	if o.Client == nil {
		o.Client = NewHTTPClient(DefaultTimeout)
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
}

func (o *JSONBinOptions) validate() error {
	if _, err := url.ParseRequestURI(o.Endpoint); err != nil {
		return xerrors.Wrapf(err, "invalid jsonbin endpoint %q", o.Endpoint)
	}
	if o.BinID == "" {
		return xerrors.New("jsonbin bin id is required")
	}
	return nil
}

// JSONBin is a DocumentStore backed by a single JSONBin bin.
type JSONBin struct {
	opts JSONBinOptions
}

func NewJSONBin(opts JSONBinOptions) (*JSONBin, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &JSONBin{opts: opts}, nil
}

type jsonbinEnvelope struct {
	Record *portfolio.Document `json:"record"`
}

// Fetch reads the latest version of the bin.
func (j *JSONBin) Fetch(ctx context.Context) (doc *portfolio.Document, err error) {
	defer func(start time.Time) { observe(j.opts.Recorder, "fetch", start, err) }(time.Now())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.binURL()+"/latest", nil)
	if err != nil {
		return nil, validationFailure("fetch", xerrors.Wrap(err, "build request"))
	}
	req.Header.Set("X-Access-Key", j.opts.AccessKey)

	body, err := do(j.opts.Client, "fetch", req)
	if err != nil {
		return nil, err
	}

	var env jsonbinEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, serverFailure("fetch", http.StatusOK, xerrors.Wrap(err, "decode jsonbin response"))
	}
	if env.Record == nil {
		return nil, serverFailure("fetch", http.StatusOK, xerrors.New("jsonbin response has no record"))
	}
	if err := env.Record.Validate(); err != nil {
		return nil, serverFailure("fetch", http.StatusOK, err)
	}
	return env.Record, nil
}

// Save replaces the bin with doc. The last writer wins.
func (j *JSONBin) Save(ctx context.Context, doc *portfolio.Document) (err error) {
	defer func(start time.Time) { observe(j.opts.Recorder, "save", start, err) }(time.Now())

	if err := doc.Validate(); err != nil {
		return validationFailure("save", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return validationFailure("save", xerrors.Wrap(err, "encode document"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, j.binURL(), bytes.NewReader(b))
	if err != nil {
		return validationFailure("save", xerrors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", j.opts.AccessKey)

	_, err = do(j.opts.Client, "save", req)
	return err
}

func (j *JSONBin) binURL() string {
	return j.opts.Endpoint + "/b/" + url.PathEscape(j.opts.BinID)
}
