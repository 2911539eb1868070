package storage

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"blazedb-go/config"
	"blazedb-go/operators"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go"
	"github.com/sirupsen/logrus"
)

const s3Scheme = "s3://"

var log = logrus.WithField("component", "storage")

// File is an open data location. Local files and S3 objects both satisfy it,
// parquet readers need the ReaderAt/Seeker half.
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

var (
	_ = (File)(&os.File{})
	_ = (File)(&minio.Object{})
)

func IsRemote(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// Join appends name to a data directory, local or s3://bucket/prefix.
func Join(dir, name string) string {
	if IsRemote(dir) {
		return s3Scheme + path.Join(strings.TrimPrefix(dir, s3Scheme), name)
	}
	return filepath.Join(dir, name)
}

// SplitObject turns s3://bucket/some/key into (bucket, some/key).
func SplitObject(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, s3Scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", operators.WrapIO(errors.Newf("bad object location %q", location), "expected s3://bucket/key")
	}
	return bucket, key, nil
}

// Opener opens data locations. The object storage client is created on the
// first remote open and reused afterwards.
type Opener struct {
	cfg *config.Config

	once      sync.Once
	client    *minio.Client
	clientErr error
}

func NewOpener(cfg *config.Config) *Opener {
	return &Opener{cfg: cfg}
}

func (o *Opener) Open(location string) (File, error) {
	if IsRemote(location) {
		return o.openObject(location)
	}
	f, err := os.Open(location)
	if err != nil {
		return nil, operators.WrapIO(err, "failed to open table file")
	}
	return f, nil
}

func (o *Opener) minioClient() (*minio.Client, error) {
	o.once.Do(func() {
		secrets := o.cfg.Secrets
		endpoint := o.cfg.Storage.Endpoint
		if secrets.EndpointURL != "" {
			endpoint = secrets.EndpointURL
		}
		log.WithField("endpoint", endpoint).Debug("connecting to object storage")
		o.client, o.clientErr = minio.New(endpoint, secrets.AccessKey, secrets.SecretKey, o.cfg.Storage.UseSSL)
	})
	return o.client, o.clientErr
}

func (o *Opener) openObject(location string) (File, error) {
	bucket, key, err := SplitObject(location)
	if err != nil {
		return nil, err
	}
	client, err := o.minioClient()
	if err != nil {
		return nil, operators.WrapIO(err, "failed to create object storage client")
	}
	obj, err := client.GetObject(bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, operators.WrapIO(err, "failed to get object %s", location)
	}
	// GetObject is lazy, a missing key only shows up on the first request
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, operators.WrapIO(err, "failed to stat object %s", location)
	}
	log.WithFields(logrus.Fields{"bucket": bucket, "key": key}).Debug("opened object")
	return obj, nil
}
