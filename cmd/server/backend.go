package main

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"github.com/mohammadalshikh/orbit/internal/cfg"
	"github.com/mohammadalshikh/orbit/internal/content"
	"github.com/mohammadalshikh/orbit/internal/log"
	"github.com/mohammadalshikh/orbit/internal/metrics"
	"github.com/mohammadalshikh/orbit/internal/portfolio"
	"github.com/mohammadalshikh/orbit/internal/secrets"
	"github.com/mohammadalshikh/orbit/internal/store"
	"github.com/mohammadalshikh/orbit/internal/visits"
	"github.com/mohammadalshikh/orbit/internal/xerrors"
)

// awsLoader loads the shared AWS config at most once, and only when SSM or
// the s3 backend needs it.
type awsLoader struct {
	cfg    *aws.Config
	loaded bool
}

func (a *awsLoader) get(ctx context.Context) (aws.Config, error) {
	if a.loaded {
		return *a.cfg, nil
	}
	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, xerrors.Wrap(err, "load AWS config")
	}
	a.cfg, a.loaded = &c, true
	return c, nil
}

// fillSecrets reads credentials that were not set by flag or env from SSM.
func fillSecrets(ctx context.Context, conf *cfg.App, awsc *awsLoader, L log.Logger) error {
	if conf.SecretsSSMPrefix == "" {
		return nil
	}
	ac, err := awsc.get(ctx)
	if err != nil {
		return err
	}
	filled, err := secrets.Fill(ctx, ssm.NewFromConfig(ac), conf.SecretsSSMPrefix, []secrets.Target{
		{Name: "jsonbin-access-key", Dest: &conf.JSONBinAccessKey},
		{Name: "jsonbin-bin-id", Dest: &conf.JSONBinBinID},
		{Name: "imgbb-api-key", Dest: &conf.ImgBBAPIKey},
		{Name: "admin-password-hash", Dest: &conf.AdminPasswordHash},
	}, L)
	if err != nil {
		return err
	}
	if len(filled) > 0 {
		L.Info(ctx, "filled settings from ssm", "prefix", conf.SecretsSSMPrefix, "settings", filled)
	}
	return nil
}

// backend is the remote side of the server. Docs is nil when the remote
// store is not configured; Images is nil when uploads cannot be hosted.
type backend struct {
	Docs   store.DocumentStore
	Images store.ImageHost
}

func newBackend(ctx context.Context, conf cfg.App, awsc *awsLoader, m *metrics.ServerMetrics) (backend, error) {
	switch conf.StoreBackend {
	case cfg.BackendS3:
		ac, err := awsc.get(ctx)
		if err != nil {
			return backend{}, err
		}
		client := s3.NewFromConfig(ac)
		docs, err := store.NewS3DocumentStore(client, conf.S3Bucket, conf.S3DocumentKey, m)
		if err != nil {
			return backend{}, err
		}
		b := backend{Docs: docs}
		if conf.S3PublicBaseURL != "" {
			images, err := store.NewS3ImageHost(client, store.S3ImageHostOptions{
				Bucket:        conf.S3Bucket,
				Prefix:        conf.S3ImagePrefix,
				PublicBaseURL: conf.S3PublicBaseURL,
				MaxBytes:      conf.ImageMaxBytes,
				Recorder:      m,
			})
			if err != nil {
				return backend{}, err
			}
			b.Images = images
		}
		return b, nil

	default:
		client := store.NewHTTPClient(conf.RemoteTimeout)
		docs, err := store.NewJSONBin(store.JSONBinOptions{
			Endpoint:  conf.JSONBinEndpoint,
			AccessKey: conf.JSONBinAccessKey,
			BinID:     conf.JSONBinBinID,
			Client:    client,
			Recorder:  m,
		})
		if err != nil {
			return backend{}, err
		}
		images, err := store.NewImgBB(store.ImgBBOptions{
			Endpoint: conf.ImgBBEndpoint,
			APIKey:   conf.ImgBBAPIKey,
			MaxBytes: conf.ImageMaxBytes,
			Client:   client,
			Recorder: m,
		})
		if err != nil {
			return backend{}, err
		}
		return backend{Docs: docs, Images: images}, nil
	}
}

// publishInitial fetches the remote document once at startup so the first
// page load has something to show, falling back to the bundled sample.
func publishInitial(ctx context.Context, mgr *content.Manager, docs store.DocumentStore, timeout time.Duration, L log.Logger) *portfolio.Document {
	if docs != nil {
		fctx, cancel := context.WithTimeout(ctx, timeout)
		doc, err := docs.Fetch(fctx)
		cancel()
		if err == nil {
			mgr.Publish(doc, content.SourceRemote)
			return doc
		}
		L.Warn(ctx, "initial fetch failed, publishing bundled content", "error", err)
	}
	doc := portfolio.Sample()
	mgr.Publish(doc, content.SourceSample)
	return doc
}

// newCounter picks the log counter. Redis keeps concurrent increments
// exact; the document counter is a read-modify-write on the remote store.
// Nil means POST /api/logs answers {"logs": null}.
func newCounter(ctx context.Context, conf cfg.App, docs store.DocumentStore, seed int, L log.Logger) (visits.Counter, func() error, error) {
	noop := func() error { return nil }
	if conf.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		rc := visits.NewRedisCounter(client, conf.RedisKey)
		if err := rc.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		if created, err := rc.Seed(ctx, seed); err != nil {
			L.Warn(ctx, "could not seed redis log counter", "error", err)
		} else if created {
			L.Info(ctx, "seeded redis log counter", "key", conf.RedisKey, "value", seed)
		}
		return rc, client.Close, nil
	}
	if docs == nil {
		return nil, noop, nil
	}
	return visits.NewDocumentCounter(docs), noop, nil
}
