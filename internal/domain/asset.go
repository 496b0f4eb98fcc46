package domain

import (
	"bytes"
	"io"
)

// RawAsset is an ingested input before decoding. Bytes is shared with every
// holder of the asset and must be treated as read-only.
type RawAsset struct {
	Bytes     []byte
	MimeType  string
	Filename  string
	SizeBytes int64
}

func NewRawAsset(data []byte, mimeType, filename string) RawAsset {
	return RawAsset{
		Bytes:     data,
		MimeType:  mimeType,
		Filename:  filename,
		SizeBytes: int64(len(data)),
	}
}

func (a RawAsset) Reader() io.Reader {
	return bytes.NewReader(a.Bytes)
}

func (a RawAsset) IsPDF() bool {
	return a.MimeType == "application/pdf"
}
