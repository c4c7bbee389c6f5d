package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3DocumentStore keeps the document as one JSON object.
type S3DocumentStore struct {
	client S3API
	bucket string
	key    string
	rec    Recorder
}

func NewS3DocumentStore(client S3API, bucket, key string, rec Recorder) (*S3DocumentStore, error) {
	if client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if bucket == "" || key == "" {
		return nil, xerrors.New("s3 bucket and document key are required")
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &S3DocumentStore{client: client, bucket: bucket, key: key, rec: rec}, nil
}

func (s *S3DocumentStore) Fetch(ctx context.Context) (doc *portfolio.Document, err error) {
	defer func(start time.Time) { observe(s.rec, "fetch", start, err) }(time.Now())

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, classifyAWS("fetch", xerrors.Wrapf(err, "get s3://%s/%s", s.bucket, s.key))
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxResponseBytes))
	if err != nil {
		return nil, networkFailure("fetch", xerrors.Wrap(err, "read s3 object"))
	}
	var d portfolio.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, serverFailure("fetch", 0, xerrors.Wrap(err, "decode s3 document"))
	}
	if err := d.Validate(); err != nil {
		return nil, serverFailure("fetch", 0, err)
	}
	return &d, nil
}

func (s *S3DocumentStore) Save(ctx context.Context, doc *portfolio.Document) (err error) {
	defer func(start time.Time) { observe(s.rec, "save", start, err) }(time.Now())

	if err := doc.Validate(); err != nil {
		return validationFailure("save", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return validationFailure("save", xerrors.Wrap(err, "encode document"))
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key),
		Body:         bytes.NewReader(b),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return classifyAWS("save", xerrors.Wrapf(err, "put s3://%s/%s", s.bucket, s.key))
	}
	return nil
}

type S3ImageHostOptions struct {
	Bucket string
	Prefix string
	// PublicBaseURL is prepended to the object key to form the returned URL.
	PublicBaseURL string
	MaxBytes      int64
	Recorder      Recorder

	// NewName generates object names; defaults to random UUIDs.
	NewName func() string
}

// S3ImageHost stores uploads as public objects under a key prefix.
type S3ImageHost struct {
	client S3API
	opts   S3ImageHostOptions
}

func NewS3ImageHost(client S3API, opts S3ImageHostOptions) (*S3ImageHost, error) {
	if client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if opts.Bucket == "" {
		return nil, xerrors.New("s3 bucket is required")
	}
	if opts.PublicBaseURL == "" {
		return nil, xerrors.New("s3 public base url is required")
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxImageBytes
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.NewName == nil {
		opts.NewName = uuid.NewString
	}
	return &S3ImageHost{client: client, opts: opts}, nil
}

func (h *S3ImageHost) Upload(ctx context.Context, img Image) (u string, err error) {
	defer func(start time.Time) { observe(h.opts.Recorder, "upload", start, err) }(time.Now())

	data, err := readImage(img, h.opts.MaxBytes)
	if err != nil {
		return "", err
	}

	key := h.opts.NewName() + imageExt(img)
	if h.opts.Prefix != "" {
		key = h.opts.Prefix + "/" + key
	}
	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(h.opts.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(img.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", classifyAWS("upload", xerrors.Wrapf(err, "put s3://%s/%s", h.opts.Bucket, key))
	}
	return h.opts.PublicBaseURL + "/" + key, nil
}

// imageExt keeps the uploaded file's extension, falling back to the subtype
// of the media type.
func imageExt(img Image) string {
	if ext := strings.ToLower(path.Ext(img.Name)); len(ext) > 1 && len(ext) <= 6 && isAlnum(ext[1:]) {
		return ext
	}
	sub := strings.TrimPrefix(strings.ToLower(img.ContentType), "image/")
	if i := strings.IndexAny(sub, ";+"); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" || !isAlnum(sub) {
		return ""
	}
	return "." + sub
}

func isAlnum(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
