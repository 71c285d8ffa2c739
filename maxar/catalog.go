// Package maxar lists and downloads visual captures from the public
// Maxar Open Data bucket.
//
// Keys follow events/{disaster}/ard/{utm_zone}/{quadkey}/{date}/{image_id}-visual.tif.
// A capture is downloaded as {dir}/{image_id}/{quadkey}-visual.tif.
package maxar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/dustin/go-humanize"
	"github.com/jellydator/ttlcache/v3"
	"github.com/skysift/dmgtiles/params"
)

// Lister is the part of the S3 client the catalog lists with.
type Lister interface {
	ListObjectsV2PagesWithContext(ctx aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error
}

// Downloader is the part of s3manager.Downloader the catalog fetches with.
type Downloader interface {
	DownloadWithContext(ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, options ...func(*s3manager.Downloader)) (int64, error)
}

type Catalog struct {
	Config *params.MaxarConfig

	lister     Lister
	downloader Downloader
	listings   *ttlcache.Cache[string, []string]
	logger     *slog.Logger
}

// NewCatalog connects to the bucket with anonymous credentials.
func NewCatalog(config *params.MaxarConfig) (*Catalog, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(config.Region),
		Credentials: credentials.AnonymousCredentials,
	})
	if err != nil {
		return nil, err
	}
	return NewCatalogWith(config, s3.New(sess), s3manager.NewDownloader(sess)), nil
}

func NewCatalogWith(config *params.MaxarConfig, lister Lister, downloader Downloader) *Catalog {
	return &Catalog{
		Config:     config,
		lister:     lister,
		downloader: downloader,
		listings: ttlcache.New[string, []string](
			ttlcache.WithTTL[string, []string](params.CacheCatalogListingTTL)),
		logger: slog.With("system", "maxar", "bucket", config.Bucket),
	}
}

// EventPrefix is the key prefix of one event's analysis-ready captures.
func (c *Catalog) EventPrefix(disaster string) string {
	return path.Join(c.Config.EventsPrefix, disaster, "ard") + "/"
}

// Keys lists every object key of the event. Listings are cached.
func (c *Catalog) Keys(ctx context.Context, disaster string) ([]string, error) {
	if item := c.listings.Get(disaster); item != nil {
		return item.Value(), nil
	}
	prefix := c.EventPrefix(disaster)
	var keys []string
	err := c.lister.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.Config.Bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	c.logger.Info("Listed event", "disaster", disaster, "keys", len(keys))
	c.listings.Set(disaster, keys, ttlcache.DefaultTTL)
	return keys, nil
}

// VisualKeys returns the visual asset keys of one capture.
func (c *Catalog) VisualKeys(ctx context.Context, disaster, imageID string) ([]string, error) {
	keys, err := c.Keys(ctx, disaster)
	if err != nil {
		return nil, err
	}
	want := imageID + c.Config.VisualSuffix
	var out []string
	for _, k := range keys {
		if path.Base(k) == want {
			out = append(out, k)
		}
	}
	return out, nil
}

// ImageID returns the capture id named by a visual asset key.
func (c *Catalog) ImageID(key string) (string, bool) {
	return strings.CutSuffix(path.Base(key), c.Config.VisualSuffix)
}

// Quadkey returns the quadkey segment of an ARD key, or "" if the key is too short.
func Quadkey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-3]
}

// FetchImage downloads every visual asset of imageID into {dir}/{imageID}/.
// An existing image directory is left alone. Files are written to a
// staging directory that is renamed into place once all keys are fetched.
func (c *Catalog) FetchImage(ctx context.Context, disaster, imageID, dir string) (int, error) {
	target := filepath.Join(dir, imageID)
	if _, err := os.Stat(target); err == nil {
		c.logger.Debug("Image already downloaded", "image", imageID)
		return 0, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	keys, err := c.VisualKeys(ctx, disaster, imageID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		c.logger.Warn("No visual assets for image", "disaster", disaster, "image", imageID)
		return 0, nil
	}
	return c.FetchKeys(ctx, imageID, keys, dir)
}

// FetchKeys downloads the given keys of one capture into {dir}/{imageID}/.
func (c *Catalog) FetchKeys(ctx context.Context, imageID string, keys []string, dir string) (int, error) {
	target := filepath.Join(dir, imageID)
	staging := target + ".part"
	if err := os.MkdirAll(staging, 0770); err != nil {
		return 0, err
	}
	start := time.Now()
	var total int64
	for _, key := range keys {
		name := c.Config.VisualSuffix
		if qk := Quadkey(key); qk != "" {
			name = qk + name
		} else {
			name = path.Base(key)
		}
		n, err := c.fetch(ctx, key, filepath.Join(staging, name))
		if err != nil {
			return 0, fmt.Errorf("fetch image %s: %w", imageID, err)
		}
		total += n
	}
	if err := os.Rename(staging, target); err != nil {
		return 0, err
	}
	c.logger.Info("↧ Downloaded image", "image", imageID, "files", len(keys),
		"size", humanize.Bytes(uint64(total)), "elapsed", time.Since(start).Round(time.Millisecond))
	return len(keys), nil
}

func (c *Catalog) fetch(ctx context.Context, key, dst string) (int64, error) {
	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	c.logger.Debug("Downloading", "key", key)
	n, err := c.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(c.Config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("download %s: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, err
	}
	return n, f.Close()
}
