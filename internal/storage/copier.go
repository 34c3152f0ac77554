package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/leapstack-labs/zonehop/internal/location"
	"golang.org/x/sync/errgroup"
)

// CopyReport summarizes a completed copy.
type CopyReport struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Objects     int      `json:"objects"`
	Keys        []string `json:"keys"`
}

// Copier copies a single object or every object under a prefix between
// locations. Each object is copied atomically; a failed copy may leave
// earlier objects in place.
type Copier struct {
	stores      Resolver
	concurrency int
	logger      *slog.Logger
}

// NewCopier creates a copier. concurrency < 1 means 4.
func NewCopier(stores Resolver, concurrency int, logger *slog.Logger) *Copier {
	if concurrency < 1 {
		concurrency = 4
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Copier{stores: stores, concurrency: concurrency, logger: logger}
}

// Copy copies src to dst. When src names a single object and dst is a
// prefix, the object keeps its base name under dst. When src is a prefix,
// relative keys are preserved under dst.
func (c *Copier) Copy(ctx context.Context, src, dst location.Location) (*CopyReport, error) {
	srcStore, err := c.stores.StoreFor(src)
	if err != nil {
		return nil, err
	}
	dstStore, err := c.stores.StoreFor(dst)
	if err != nil {
		return nil, err
	}

	pairs, err := c.plan(ctx, srcStore, src, dst)
	if err != nil {
		return nil, err
	}

	report := &CopyReport{Source: src.String(), Destination: dst.String(), Objects: len(pairs)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, p := range pairs {
		g.Go(func() error {
			if err := c.copyOne(gctx, srcStore, dstStore, src.Bucket, p[0], dst.Bucket, p[1]); err != nil {
				return fmt.Errorf("copy %s/%s: %w", src.Bucket, p[0], err)
			}
			return nil
		})
		report.Keys = append(report.Keys, p[1])
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("copied dataset",
		"source", report.Source,
		"destination", report.Destination,
		"objects", report.Objects)
	return report, nil
}

// plan returns [srcKey, dstKey] pairs. A single source object keeps its
// base name under dst unless dst ends in a file name with the same extension.
func (c *Copier) plan(ctx context.Context, store ObjectStore, src, dst location.Location) ([][2]string, error) {
	listing, err := List(ctx, store, src)
	if err != nil {
		return nil, err
	}

	if listing.IsObject() {
		srcKey := listing.Keys[0]
		dstKey := dst.Key
		if ext := path.Ext(srcKey); ext == "" || path.Ext(dst.Key) != ext {
			dstKey = location.Join(dst.Key, path.Base(srcKey))
		}
		return [][2]string{{srcKey, dstKey}}, nil
	}

	pairs := make([][2]string, 0, len(listing.Keys))
	for _, k := range listing.Keys {
		rel := strings.TrimPrefix(k, listing.Prefix)
		pairs = append(pairs, [2]string{k, location.Join(dst.Key, rel)})
	}
	return pairs, nil
}

func (c *Copier) copyOne(ctx context.Context, srcStore, dstStore ObjectStore, srcBucket, srcKey, dstBucket, dstKey string) error {
	c.logger.Debug("copying object", "src", srcBucket+"/"+srcKey, "dst", dstBucket+"/"+dstKey)
	if srcStore == dstStore {
		return srcStore.CopyObject(ctx, srcBucket, srcKey, dstBucket, dstKey)
	}
	data, err := srcStore.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return err
	}
	return dstStore.PutObject(ctx, dstBucket, dstKey, data)
}
