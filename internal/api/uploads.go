package api

import (
	"errors"
	"fmt"
	"image/color"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/notify"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/source"
)

const (
	multipartMemory = 32 << 20
	maxUploadFiles  = 50
)

// form reads multipart values and keeps the first parse error. Upload
// failures are also reported to sink, since no tool runs for them.
type form struct {
	r    *http.Request
	sink notify.Sink
	err  error
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("%w: request body exceeds %d bytes", domain.ErrFileTooLarge, tooLarge.Limit)
			return nil, notify.Report(r.Context(), s.notices, err)
		}
		return nil, fmt.Errorf("%w: expected multipart form: %v", errBadRequest, err)
	}
	return &form{r: r, sink: s.notices}, nil
}

// uploadLimit caps the whole body at a batch of the largest inputs.
func (s *Server) uploadLimit() int64 {
	limit := max(s.tools.Limits.ImageMaxBytes, s.tools.Limits.HashMaxBytes, s.tools.Limits.PDFMaxBytes)
	if limit <= 0 {
		limit = source.DefaultHashMaxBytes
	}
	return limit*4 + 1<<20
}

func (f *form) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

func (f *form) failUpload(err error) {
	f.fail(notify.Report(f.r.Context(), f.sink, err))
}

func (f *form) str(name string) string {
	return strings.TrimSpace(f.r.FormValue(name))
}

func (f *form) float(name string, def float64) float64 {
	v := f.str(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		f.fail(fmt.Errorf("%w: %s must be a number", domain.ErrInvalidParameters, name))
		return def
	}
	return n
}

func (f *form) optFloat(name string) *float64 {
	if f.str(name) == "" {
		return nil
	}
	v := f.float(name, 0)
	return &v
}

func (f *form) int(name string, def int) int {
	v := f.str(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.fail(fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidParameters, name))
		return def
	}
	return n
}

func (f *form) bool(name string) bool {
	v := f.str(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		f.fail(fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidParameters, name))
	}
	return b
}

// color returns nil when the field is absent so tools keep their defaults.
func (f *form) color(name string) color.Color {
	v := f.str(name)
	if v == "" {
		return nil
	}
	c, err := raster.ParseColor(v)
	if err != nil {
		f.fail(err)
		return nil
	}
	return c
}

func (f *form) format(name string, def codec.Format) codec.Format {
	v := f.str(name)
	if v == "" {
		return def
	}
	out, err := codec.ParseFormat(v)
	if err != nil {
		f.fail(err)
		return def
	}
	return out
}

// list accepts repeated fields and comma separated values.
func (f *form) list(name string) []string {
	var out []string
	for _, v := range f.r.MultipartForm.Value[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (f *form) pageOptions() export.PageOptions {
	settings := &domain.PageSettings{
		Size:        f.str("page_size"),
		WidthMM:     f.float("width_mm", 0),
		HeightMM:    f.float("height_mm", 0),
		Orientation: f.str("orientation"),
		MarginMM:    f.float("margin_mm", export.DefaultPageOptions().MarginMM),
	}
	if f.str("keep_aspect") != "" {
		keep := f.bool("keep_aspect")
		settings.KeepAspect = &keep
	}
	page, err := export.PageOptionsFrom(settings, f.str("image_format"), f.float("quality", 0))
	if err != nil {
		f.fail(err)
	}
	return page
}

// asset acquires the first file in field name.
func (f *form) asset(acq source.Acquirer, name string, required bool) (domain.RawAsset, bool) {
	headers := f.r.MultipartForm.File[name]
	if len(headers) == 0 {
		if required {
			f.fail(fmt.Errorf("%w: missing file field %q", errBadRequest, name))
		}
		return domain.RawAsset{}, false
	}
	asset, err := acquire(f.r, acq, headers[0])
	if err != nil {
		f.failUpload(err)
		return domain.RawAsset{}, false
	}
	return asset, true
}

// assets acquires every file in field name, keeping upload order.
func (f *form) assets(acq source.Acquirer, name string) []domain.RawAsset {
	headers := f.r.MultipartForm.File[name]
	if len(headers) == 0 {
		f.fail(fmt.Errorf("%w: missing file field %q", errBadRequest, name))
		return nil
	}
	if len(headers) > maxUploadFiles {
		f.fail(fmt.Errorf("%w: at most %d files per request", domain.ErrInvalidParameters, maxUploadFiles))
		return nil
	}
	out := make([]domain.RawAsset, 0, len(headers))
	for _, h := range headers {
		asset, err := acquire(f.r, acq, h)
		if err != nil {
			f.failUpload(err)
			return nil
		}
		out = append(out, asset)
	}
	return out
}

func acquire(r *http.Request, acq source.Acquirer, h *multipart.FileHeader) (domain.RawAsset, error) {
	file, err := h.Open()
	if err != nil {
		return domain.RawAsset{}, fmt.Errorf("%w: open %s: %v", domain.ErrAcquisition, h.Filename, err)
	}
	defer file.Close()
	return acq.Acquire(r.Context(), source.Upload{
		Reader:   file,
		Size:     h.Size,
		MimeType: h.Header.Get("Content-Type"),
		Filename: h.Filename,
	})
}
