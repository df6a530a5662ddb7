// Package asset reads model artifacts from a local path, Google Cloud Storage
// (gs://bucket/object) or Amazon S3 (s3://bucket/key).
package asset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// Location is a parsed asset address.
type Location struct {
	Scheme string // "file", "gs" or "s3"
	Bucket string
	Path   string
}

func (l Location) String() string {
	if l.Scheme == "file" {
		return l.Path
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Path
}

// Parse splits raw into a Location. Plain paths are local files.
func Parse(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("empty asset location")
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("asset location %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file":
		return Location{Scheme: "file", Path: u.Path}, nil
	case "gs", "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("asset location %q needs a bucket and an object", raw)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Path: key}, nil
	}

	return Location{}, fmt.Errorf("asset location %q: unsupported scheme %q", raw, u.Scheme)
}

// Open returns a reader for the asset at raw. The caller closes it.
func Open(ctx context.Context, raw string) (io.ReadCloser, error) {
	loc, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	logrus.WithField("location", loc.String()).Debug("opening asset")

	switch loc.Scheme {
	case "gs":
		return openGCS(ctx, loc)
	case "s3":
		return openS3(ctx, loc)
	}
	return os.Open(loc.Path)
}

// ReadAll reads the whole asset at raw.
func ReadAll(ctx context.Context, raw string) ([]byte, error) {
	rc, err := Open(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	if cerr := r.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func openGCS(ctx context.Context, loc Location) (io.ReadCloser, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	r, err := client.Bucket(loc.Bucket).Object(loc.Path).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("gcs read %s: %w", loc, err)
	}
	return &gcsReader{Reader: r, client: client}, nil
}

func openS3(ctx context.Context, loc Location) (io.ReadCloser, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	out, err := s3.NewFromConfig(cfg).GetObject(ctx, &s3.GetObjectInput{
		Bucket: &loc.Bucket,
		Key:    &loc.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", loc, err)
	}
	return out.Body, nil
}
