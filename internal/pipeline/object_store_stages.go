package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/storage"
)

const SourceTypeObjectStore = domain.SourceTypeObjectStore

// NewObjectStoreProcessor reads object_store keys from the bucket, still
// accepts local_file jobs, and writes outputs under outputPrefix.
func NewObjectStoreProcessor(store storage.ObjectStore, outputPrefix string, acq source.Acquirer) *Processor {
	fetcher := SourceRouter{
		SourceTypeObjectStore: ObjectStoreFetcher{Storage: store, Acquirer: acq},
		SourceTypeLocalFile:   LocalFileFetcher{Acquirer: acq},
	}
	return NewProcessor(fetcher, codec.New(), ObjectStoreEmitter{Storage: store, OutputPrefix: outputPrefix})
}

type ObjectStoreFetcher struct {
	Storage  storage.ObjectStore
	Acquirer source.Acquirer
}

func (f ObjectStoreFetcher) Fetch(ctx context.Context, req Request, key string) (domain.RawAsset, error) {
	if f.Storage == nil {
		return domain.RawAsset{}, errors.New("storage client is required")
	}
	if strings.EqualFold(req.SourceType, SourceTypeLocalFile) {
		return domain.RawAsset{}, fmt.Errorf("%w: %s", ErrUnsupportedSourceType, req.SourceType)
	}
	data, err := f.Storage.ReadObject(ctx, key)
	if err != nil {
		return domain.RawAsset{}, err
	}
	return f.Acquirer.Acquire(ctx, source.Upload{
		Reader:   bytes.NewReader(data),
		Size:     int64(len(data)),
		Filename: path.Base(key),
	})
}

type ObjectStoreEmitter struct {
	Storage      storage.ObjectStore
	OutputPrefix string
}

func (e ObjectStoreEmitter) Emit(ctx context.Context, req Request, art export.Artifact) (Output, error) {
	if e.Storage == nil {
		return Output{}, errors.New("storage client is required")
	}

	objectKey := path.Join(
		defaultOutputPrefix(e.OutputPrefix),
		sanitizePathToken(req.JobID),
		art.Filename("export"),
	)
	if err := e.Storage.WriteObject(ctx, objectKey, art.Bytes, art.MimeType); err != nil {
		return Output{}, err
	}
	return outputFor(objectKey, art), nil
}

func defaultOutputPrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "outputs"
	}
	return prefix
}
