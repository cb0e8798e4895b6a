// Package publish uploads the build directory to S3 compatible storage.
//
//	client := publish.NewClient(cfg.Publish)
//	p := publish.New(client, publish.Options{Bucket: cfg.Publish.Bucket})
//	result, err := p.Publish(ctx, cfg.BuildDir())
//
// Files whose names carry a content hash get immutable cache headers.
// Everything else, including manifest.json, is revalidated by clients.
package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/pkg/assets"
)

const (
	CacheImmutable  = "public, max-age=31536000, immutable"
	CacheRevalidate = "public, max-age=0, must-revalidate"
)

// PutObjectAPI is the part of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	Bucket string

	// Prefix is prepended to every key, e.g. "site/v2".
	Prefix string

	// Immutable lists extra key prefixes, relative to the build directory,
	// whose files never change under the same name. Fingerprinted files
	// are always immutable.
	Immutable []string

	// Concurrency is the number of parallel uploads. Defaults to 8.
	Concurrency int

	// DryRun lists the uploads without performing them.
	DryRun bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Object is one uploaded file.
type Object struct {
	Key          string
	ContentType  string
	CacheControl string
	Size         int64
}

// Result lists the uploaded objects sorted by key.
type Result struct {
	Objects []Object
	Bytes   int64
}

// Publisher uploads directories.
type Publisher struct {
	client PutObjectAPI
	opts   Options
	log    *slog.Logger
}

// New creates a publisher.
func New(client PutObjectAPI, opts Options) *Publisher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{client: client, opts: opts, log: log}
}

// NewClient creates an S3 client from the publish configuration.
// Credentials come from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_SESSION_TOKEN.
func NewClient(cfg config.PublishConfig) *s3.Client {
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(EnvCredentials()),
		BaseEndpoint: optional(cfg.Endpoint),
		UsePathStyle: cfg.PathStyle,
	})
}

// EnvCredentials reads static credentials from the environment.
func EnvCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		creds := aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}
		if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
			return aws.Credentials{}, errors.New("E150").
				WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
		}
		return creds, nil
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// Publish uploads every file below dir. The first failed upload cancels
// the rest.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Result, error) {
	if p.opts.Bucket == "" {
		return nil, errors.New("E150").WithDetail("publish.bucket is not set")
	}

	files, err := p.collect(dir)
	if err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = &Result{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			obj, err := p.upload(gctx, f)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Objects = append(result.Objects, obj)
			result.Bytes += obj.Size
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(result.Objects, func(i, j int) bool { return result.Objects[i].Key < result.Objects[j].Key })
	p.log.Info("published", "bucket", p.opts.Bucket, "objects", len(result.Objects), "bytes", result.Bytes)
	return result, nil
}

type file struct {
	path string
	rel  string
	size int64
}

func (p *Publisher) collect(dir string) ([]file, error) {
	var files []file
	err := filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, fp)
		if err != nil {
			return err
		}
		files = append(files, file{path: fp, rel: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.New("E150").WithPath(dir).Wrap(err)
	}
	return files, nil
}

func (p *Publisher) upload(ctx context.Context, f file) (Object, error) {
	obj := Object{
		Key:          p.key(f.rel),
		ContentType:  ContentType(f.rel),
		CacheControl: p.cacheControl(f.rel),
		Size:         f.size,
	}
	if p.opts.DryRun {
		p.log.Info("would upload", "key", obj.Key, "type", obj.ContentType)
		return obj, nil
	}

	body, err := os.Open(f.path)
	if err != nil {
		return obj, errors.New("E150").WithPath(f.path).Wrap(err)
	}
	defer body.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.opts.Bucket),
		Key:           aws.String(obj.Key),
		Body:          body,
		ContentType:   aws.String(obj.ContentType),
		CacheControl:  aws.String(obj.CacheControl),
		ContentLength: aws.Int64(f.size),
	})
	if err != nil {
		return obj, errors.New("E150").WithPath(obj.Key).Wrap(err)
	}
	p.log.Debug("uploaded", "key", obj.Key, "bytes", f.size)
	return obj, nil
}

func (p *Publisher) key(rel string) string {
	prefix := strings.Trim(p.opts.Prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

func (p *Publisher) cacheControl(rel string) string {
	if assets.IsFingerprinted(rel) {
		return CacheImmutable
	}
	for _, prefix := range p.opts.Immutable {
		if strings.HasPrefix(rel, prefix) {
			return CacheImmutable
		}
	}
	return CacheRevalidate
}

// ContentType returns the content type of a file by extension.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".map", ".json":
		return "application/json"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
