package api

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strconv"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/dunamismax/artifactkit/internal/password"
	"github.com/dunamismax/artifactkit/internal/qr"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/dunamismax/artifactkit/internal/transform"
)

func writeArtifact(w http.ResponseWriter, art export.Artifact, stem string) {
	w.Header().Set("Content-Type", art.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename(stem)))
	w.Header().Set("X-Artifact-Pages", strconv.Itoa(art.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Bytes)
}

func optionalColor(v string) (color.Color, error) {
	if v == "" {
		return nil, nil
	}
	c, err := raster.ParseColor(v)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func parseFormatOr(v string, def codec.Format) (codec.Format, error) {
	if v == "" {
		return def, nil
	}
	return codec.ParseFormat(v)
}

type hashTextRequest struct {
	Text       string   `json:"text"`
	Algorithms []string `json:"algorithms"`
	Save       bool     `json:"save"`
}

func (s *Server) handleHashText(w http.ResponseWriter, r *http.Request) {
	var req hashTextRequest
	if err := decodeJSONLimit(r, &req, s.tools.Hash.Acquirer().MaxBytes+1<<10); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := s.tools.Hash.Text(r.Context(), req.Text, req.Algorithms, req.Save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHashFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.Hash.Acquirer(), "file", true)
	algs := f.list("algorithms")
	save := f.bool("save")
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	res, err := s.tools.Hash.Asset(r.Context(), asset, algs, save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type hashCompareRequest struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (s *Server) handleHashCompare(w http.ResponseWriter, r *http.Request) {
	var req hashCompareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"match": s.tools.Hash.Compare(req.Expected, req.Actual)})
}

type passwordRequest struct {
	password.Options
	Save bool `json:"save"`
}

func (s *Server) handlePassword(w http.ResponseWriter, r *http.Request) {
	req := passwordRequest{Options: password.DefaultOptions()}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	out, err := s.tools.Passwords.Generate(r.Context(), req.Options, req.Save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"passwords": out})
}

func (s *Server) handlePasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.tools.Passwords.Strength(req.Password))
}

// qrEncodeRequest takes either raw data or a payload type with its fields.
type qrEncodeRequest struct {
	Data       string            `json:"data"`
	Type       string            `json:"type"`
	Fields     map[string]string `json:"fields"`
	ECC        string            `json:"ecc"`
	Size       int               `json:"size"`
	Foreground string            `json:"foreground"`
	Background string            `json:"background"`
	Format     string            `json:"format"`
	Quality    float64           `json:"quality"`
	Save       bool              `json:"save"`
}

func (s *Server) handleQREncode(w http.ResponseWriter, r *http.Request) {
	var req qrEncodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	data := req.Data
	if req.Type != "" {
		var err error
		if data, err = qr.Build(req.Type, req.Fields); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	format, err := parseFormatOr(req.Format, codec.PNG)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if format != codec.PNG && format != codec.SVG && format != codec.JPEG {
		s.writeError(w, r, fmt.Errorf("%w: qr format must be png, svg or jpeg", domain.ErrInvalidParameters))
		return
	}
	fg, err := optionalColor(req.Foreground)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bg, err := optionalColor(req.Background)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	art, err := s.tools.QR.Encode(r.Context(), tools.QREncodeRequest{
		Data:       data,
		ECC:        qr.ECC(req.ECC),
		Size:       req.Size,
		Foreground: fg,
		Background: bg,
		Format:     format,
		Quality:    req.Quality,
		Save:       req.Save,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "qr")
}

func (s *Server) handleQRDecode(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.ImageAcquirer(), "file", true)
	save := f.bool("save")
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	text, err := s.tools.QR.Decode(r.Context(), asset, save)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleConvert converts one file, or zips every file when several are sent.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	assets := f.assets(s.tools.DocumentAcquirer(), "files")
	format := f.format("format", codec.PNG)
	quality := f.float("quality", 0)
	save := f.bool("save")
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}

	var art export.Artifact
	if len(assets) == 1 {
		art, err = s.tools.Convert.Convert(r.Context(), assets[0], format, quality, save)
	} else {
		art, err = s.tools.Convert.Batch(r.Context(), assets, format, quality)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "converted")
}

func enhanceFromForm(f *form) tools.EnhanceRequest {
	return tools.EnhanceRequest{
		Adjust: transform.Adjust{
			Brightness: f.float("brightness", 0),
			Contrast:   f.float("contrast", 0),
			Saturation: f.float("saturation", 0),
			Hue:        f.float("hue", 0),
		},
		Filter:  f.str("filter"),
		Format:  f.format("format", codec.PNG),
		Quality: f.float("quality", 0),
	}
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.ImageAcquirer(), "file", true)
	req := enhanceFromForm(f)
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	art, err := s.tools.Enhance.Apply(r.Context(), asset, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "enhanced")
}

func (s *Server) handleEnhanceFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"filters": s.tools.Enhance.Filters()})
}

func (s *Server) handleIDPhotoPresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.tools.IDPhoto.Presets()})
}

func (s *Server) handleIDPhoto(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.ImageAcquirer(), "file", true)
	req := tools.IDPhotoRequest{
		Preset:      f.str("preset"),
		WidthMM:     f.float("width_mm", 0),
		HeightMM:    f.float("height_mm", 0),
		DPI:         f.int("dpi", 0),
		Zoom:        f.float("zoom", 1),
		PosX:        f.optFloat("pos_x"),
		PosY:        f.optFloat("pos_y"),
		Background:  f.color("background"),
		Format:      f.format("format", codec.JPEG),
		Quality:     f.float("quality", 0),
		SheetCopies: f.int("sheet_copies", 0),
		Save:        f.bool("save"),
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	art, err := s.tools.IDPhoto.Make(r.Context(), asset, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "id-photo")
}

func (s *Server) handleCollage(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	assets := f.assets(s.tools.ImageAcquirer(), "files")
	req := tools.CollageRequest{
		Layout:     f.str("layout"),
		Width:      f.int("width", 0),
		Height:     f.int("height", 0),
		Cols:       f.int("cols", 0),
		Rows:       f.int("rows", 0),
		Spacing:    f.int("spacing", 0),
		Radius:     f.float("radius", 0),
		Background: f.color("background"),
		Format:     f.format("format", codec.PNG),
		Quality:    f.float("quality", 0),
		Save:       f.bool("save"),
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	art, err := s.tools.Collage.Make(r.Context(), assets, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "collage")
}

func (s *Server) handleScanDetect(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.ImageAcquirer(), "file", true)
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	quad, err := s.tools.NewScanner().Detect(r.Context(), asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	corners := make([]map[string]int, 0, len(quad))
	for _, p := range quad {
		corners = append(corners, map[string]int{"x": p.X, "y": p.Y})
	}
	writeJSON(w, http.StatusOK, map[string]any{"corners": corners})
}

// handleScan crops and filters every uploaded page, in field order, into one
// PDF. Outlines are detected per page.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	assets := f.assets(s.tools.ImageAcquirer(), "files")
	filter := f.str("filter")
	name := f.str("name")
	page := f.pageOptions()
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	scanner := s.tools.NewScanner()
	for _, a := range assets {
		if _, err := scanner.AddPage(r.Context(), a, filter, nil); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	art, err := scanner.Export(r.Context(), name, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stem := name
	if stem == "" {
		stem = "scan"
	}
	writeArtifact(w, art, stem)
}

type maskRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleWatermarkRemove(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, _ := f.asset(s.tools.ImageAcquirer(), "file", true)
	format := f.format("format", codec.PNG)
	quality := f.float("quality", 0)
	var rects []maskRect
	if err := json.Unmarshal([]byte(f.str("mask")), &rects); err != nil {
		f.fail(fmt.Errorf("%w: mask must be a JSON list of rectangles", domain.ErrInvalidParameters))
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	mask := make([]image.Rectangle, 0, len(rects))
	for _, rc := range rects {
		mask = append(mask, image.Rect(rc.X, rc.Y, rc.X+rc.Width, rc.Y+rc.Height))
	}
	art, err := s.tools.Watermark.Remove(r.Context(), asset, mask, format, quality)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "cleaned")
}

func (s *Server) handleWatermarkAdd(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	acq := s.tools.ImageAcquirer()
	asset, _ := f.asset(acq, "file", true)
	req := tools.AddRequest{
		Text:    f.str("text"),
		Opacity: f.float("opacity", 0.5),
		Gravity: f.str("gravity"),
		Corner:  f.str("corner"),
		Size:    f.int("size", 0),
		Format:  f.format("format", codec.PNG),
		Quality: f.float("quality", 0),
		Color:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
	if v := f.str("color"); v != "" {
		c, err := raster.ParseColor(v)
		if err != nil {
			f.fail(err)
		}
		req.Color = c
	}
	if logo, ok := f.asset(acq, "logo", false); ok {
		req.Logo = &logo
	}
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	art, err := s.tools.Watermark.Add(r.Context(), asset, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "watermarked")
}

// handlePDF builds one document from the uploaded images in field order.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	assets := f.assets(s.tools.ImageAcquirer(), "files")
	page := f.pageOptions()
	if f.err != nil {
		s.writeError(w, r, f.err)
		return
	}
	doc := s.tools.NewPhotoPDF()
	for _, a := range assets {
		if _, err := doc.Add(r.Context(), a); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	art, err := doc.Export(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "document")
}

type signatureRequest struct {
	Strokes    []transform.Stroke `json:"strokes"`
	PenWidth   float64            `json:"pen_width"`
	Ink        string             `json:"ink"`
	Format     string             `json:"format"`
	Quality    float64            `json:"quality"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Background string             `json:"background"`
	Trim       bool               `json:"trim"`
	Save       bool               `json:"save"`
}

func (s *Server) handleSignature(w http.ResponseWriter, r *http.Request) {
	var req signatureRequest
	if err := decodeJSONLimit(r, &req, 8<<20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	format, err := parseFormatOr(req.Format, codec.PNG)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bg, err := optionalColor(req.Background)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var ink color.Color = color.Black
	if req.Ink != "" {
		if ink, err = raster.ParseColor(req.Ink); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	penWidth := req.PenWidth
	if penWidth <= 0 {
		penWidth = 2.5
	}

	pad := transform.NewPad(penWidth, ink)
	for _, st := range req.Strokes {
		pad.Add(st)
	}
	art, err := s.tools.Signature.Export(r.Context(), pad, tools.SignatureExport{
		Format:     format,
		Quality:    req.Quality,
		Width:      req.Width,
		Height:     req.Height,
		Background: bg,
		Trim:       req.Trim,
		Save:       req.Save,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, art, "signature")
}
