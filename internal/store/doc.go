// Package store talks to the remote services that hold site content: a
// JSON document store for the whole portfolio document and an image host
// for uploaded pictures.
//
// Two backends exist. The JSONBin/ImgBB pair mirrors the hosted services
// the site was built on; the S3 pair keeps both in one bucket. Callers only
// see [DocumentStore] and [ImageHost].
//
// Every failure is a [*Failure] classified as network, server or validation.
// Nothing is retried here.
package store

import (
	"context"
	"time"

	"github.com/mohammadalshikh/orbit/internal/portfolio"
)

// DocumentStore reads and replaces the single persisted document.
type DocumentStore interface {
	Fetch(ctx context.Context) (*portfolio.Document, error)
	Save(ctx context.Context, doc *portfolio.Document) error
}

// ImageHost stores an image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// Recorder receives one observation per remote operation.
type Recorder interface {
	ObserveStoreOp(op, result string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStoreOp(string, string, time.Duration) {}

func observe(rec Recorder, op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if k, ok := KindOf(err); ok {
			result = k.String()
		}
	}
	rec.ObserveStoreOp(op, result, time.Since(start))
}
