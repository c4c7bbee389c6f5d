package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

const (
	DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

	// DefaultMaxImageBytes is the upload ceiling when none is configured.
	DefaultMaxImageBytes int64 = 5 << 20
)

// Image is one file handed to an ImageHost.
type Image struct {
	Name        string
	ContentType string
	// Size is the declared size; -1 when unknown.
	Size int64
	Body io.Reader
}

// ValidateImage checks the declared media type and size against maxBytes.
func ValidateImage(img Image, maxBytes int64) error {
	if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		return validationFailure("upload", xerrors.Newf("content type %q is not an image", img.ContentType))
	}
	if maxBytes > 0 && img.Size > maxBytes {
		return validationFailure("upload", xerrors.Newf("image is %d bytes, limit is %d", img.Size, maxBytes))
	}
	if img.Body == nil {
		return validationFailure("upload", xerrors.New("image has no body"))
	}
	return nil
}

// readImage validates img and buffers its body, enforcing maxBytes on the
// bytes actually read as well as the declared size.
func readImage(img Image, maxBytes int64) ([]byte, error) {
	if err := ValidateImage(img, maxBytes); err != nil {
		return nil, err
	}
	r := img.Body
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, validationFailure("upload", xerrors.Wrap(err, "read image"))
	}
	if maxBytes > 0 && int64(len(b)) > maxBytes {
		return nil, validationFailure("upload", xerrors.Newf("image exceeds %d bytes", maxBytes))
	}
	if len(b) == 0 {
		return nil, validationFailure("upload", xerrors.New("image is empty"))
	}
	return b, nil
}

type ImgBBOptions struct {
	Endpoint string
	APIKey   string
	MaxBytes int64

	Client   *http.Client
	Recorder Recorder
}

func (o *ImgBBOptions) setDefaults() {
	if o.Endpoint == "" {
		o.Endpoint = DefaultImgBBEndpoint
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = DefaultMaxImageBytes
	}
	if o.Client == nil {
		o.Client = NewHTTPClient(DefaultTimeout)
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
}

func (o *ImgBBOptions) validate() error {
	if _, err := url.ParseRequestURI(o.Endpoint); err != nil {
		return xerrors.Wrapf(err, "invalid imgbb endpoint %q", o.Endpoint)
	}
	if o.MaxBytes < 0 {
		return xerrors.Newf("image max bytes must not be negative (got %d)", o.MaxBytes)
	}
	return nil
}

// ImgBB is an ImageHost backed by the ImgBB upload API.
type ImgBB struct {
	opts ImgBBOptions
}

func NewImgBB(opts ImgBBOptions) (*ImgBB, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &ImgBB{opts: opts}, nil
}

type imgbbResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload posts img as multipart form data and returns the hosted URL.
// Validation failures return before any request is made.
func (h *ImgBB) Upload(ctx context.Context, img Image) (u string, err error) {
	defer func(start time.Time) { observe(h.opts.Recorder, "upload", start, err) }(time.Now())

	data, err := readImage(img, h.opts.MaxBytes)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	name := img.Name
	if name == "" {
		name = "image"
	}
	fw, err := mw.CreatePart(imagePartHeader(name, img.ContentType))
	if err != nil {
		return "", validationFailure("upload", xerrors.Wrap(err, "build multipart body"))
	}
	if _, err := fw.Write(data); err != nil {
		return "", validationFailure("upload", xerrors.Wrap(err, "build multipart body"))
	}
	if err := mw.WriteField("key", h.opts.APIKey); err != nil {
		return "", validationFailure("upload", xerrors.Wrap(err, "build multipart body"))
	}
	if err := mw.Close(); err != nil {
		return "", validationFailure("upload", xerrors.Wrap(err, "build multipart body"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.Endpoint, &buf)
	if err != nil {
		return "", validationFailure("upload", xerrors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := do(h.opts.Client, "upload", req)
	if err != nil {
		return "", err
	}

	var resp imgbbResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", serverFailure("upload", http.StatusOK, xerrors.Wrap(err, "decode imgbb response"))
	}
	if resp.Data.URL == "" {
		return "", serverFailure("upload", http.StatusOK, xerrors.New("imgbb response has no url"))
	}
	return resp.Data.URL, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func imagePartHeader(filename, contentType string) textproto.MIMEHeader {
	return textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filename))},
		"Content-Type":        {contentType},
	}
}
