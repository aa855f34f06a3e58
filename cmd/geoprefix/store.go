package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/geoprefix"
	"github.com/hupe1980/geoprefix/blobstore"
	miniostore "github.com/hupe1980/geoprefix/blobstore/minio"
	s3store "github.com/hupe1980/geoprefix/blobstore/s3"
	"github.com/hupe1980/geoprefix/manifest"
	"github.com/hupe1980/geoprefix/prefix"
)

type storeLocation struct {
	scheme   string
	host     string
	bucket   string
	prefix   string
	path     string
	insecure bool
}

// parseStoreURI parses file://dir, s3://bucket/prefix and
// minio://host[:port]/bucket/prefix[?insecure=true]. A bare path is a
// local directory.
func parseStoreURI(raw string) (storeLocation, error) {
	if !strings.Contains(raw, "://") {
		return storeLocation{scheme: "file", path: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return storeLocation{}, fmt.Errorf("invalid store %q: %w", raw, err)
	}
	loc := storeLocation{scheme: u.Scheme}
	switch u.Scheme {
	case "file":
		loc.path = u.Host + u.Path
	case "s3":
		loc.bucket = u.Host
		loc.prefix = strings.Trim(u.Path, "/")
	case "minio":
		loc.host = u.Host
		bucket, rest, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		loc.bucket = bucket
		loc.prefix = strings.Trim(rest, "/")
		loc.insecure = u.Query().Get("insecure") == "true"
	default:
		return storeLocation{}, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
	if loc.scheme != "file" && loc.bucket == "" {
		return storeLocation{}, fmt.Errorf("store %q has no bucket", raw)
	}
	if loc.scheme == "file" && loc.path == "" {
		return storeLocation{}, fmt.Errorf("store %q has no path", raw)
	}
	return loc, nil
}

func openStore(ctx context.Context, loc storeLocation) (blobstore.Store, bool, error) {
	switch loc.scheme {
	case "file":
		s, err := blobstore.NewLocalStore(loc.path)
		if err != nil {
			return nil, false, err
		}
		return s, false, nil
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("loading AWS config: %w", err)
		}
		return s3store.NewStore(awss3.NewFromConfig(cfg), loc.bucket, loc.prefix), true, nil
	case "minio":
		client, err := minio.New(loc.host, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("GEOPREFIX_MINIO_ACCESS_KEY"), os.Getenv("GEOPREFIX_MINIO_SECRET_KEY"), ""),
			Secure: !loc.insecure,
		})
		if err != nil {
			return nil, false, fmt.Errorf("creating MinIO client: %w", err)
		}
		return miniostore.NewStore(client, loc.bucket, loc.prefix), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported store scheme %q", loc.scheme)
	}
}

// openIndex opens the index named by the global flags.
func openIndex(ctx context.Context, g *globalFlags, extra ...geoprefix.Option) (*geoprefix.Index, error) {
	loc, err := parseStoreURI(g.store)
	if err != nil {
		return nil, err
	}
	store, remote, err := openStore(ctx, loc)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(g.logLevel)
	if err != nil {
		return nil, err
	}

	opts := []geoprefix.Option{
		geoprefix.WithLogLevel(level),
	}
	if remote && g.blockCache > 0 {
		opts = append(opts, geoprefix.WithBlockCache(g.blockCache))
	}
	if g.dynamo != "" {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		opts = append(opts, geoprefix.WithCommitter(
			manifest.NewDynamoCommitter(dynamodb.NewFromConfig(cfg), g.dynamo, g.store),
		))
	}
	opts = append(opts, extra...)
	return geoprefix.Open(ctx, store, opts...)
}

// gridOption returns WithGrid when the user set grid flags explicitly, so
// that existing indexes open with their stored grid.
func gridOption(g *globalFlags, changed func(string) bool) []geoprefix.Option {
	if !changed("grid") && !changed("levels") {
		return nil
	}
	return []geoprefix.Option{geoprefix.WithGrid(prefix.Config{Kind: g.grid, MaxLevels: g.levels})}
}
