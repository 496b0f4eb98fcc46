package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/pipeline"
	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/dunamismax/artifactkit/internal/transform"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// previewParams is one text message on the preview socket.
type previewParams struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
	Filter     string  `json:"filter"`
}

func (p previewParams) stages() []transform.Stage {
	return tools.EnhanceRequest{
		Adjust: transform.Adjust{
			Brightness: p.Brightness,
			Contrast:   p.Contrast,
			Saturation: p.Saturation,
			Hue:        p.Hue,
		},
		Filter: p.Filter,
	}.Stages()
}

type previewEvent struct {
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
}

// handlePreview streams re-rendered frames. The client sends the source image
// as the first binary message, then adjustment params as JSON text messages;
// each settled change is answered with one encoded frame.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	format, err := parseFormatOr(r.URL.Query().Get("format"), codec.JPEG)
	if err != nil || !format.Raster() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be a raster image format"})
		return
	}
	quality := 0.8
	if q := r.URL.Query().Get("quality"); q != "" {
		f := &form{r: r}
		quality = f.float("quality", quality)
		if f.err != nil {
			s.writeError(w, r, f.err)
			return
		}
	}

	// The socket outlives the server's request timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("preview upgrade failed")
		return
	}
	defer conn.CloseNow()

	acq := s.tools.ImageAcquirer()
	limit := acq.MaxBytes
	if limit <= 0 {
		limit = source.DefaultImageMaxBytes
	}
	conn.SetReadLimit(limit + 1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	if typ != websocket.MessageBinary {
		conn.Close(websocket.StatusUnsupportedData, "first message must be an image")
		return
	}
	asset, err := acq.FromClipboard(ctx, data)
	if err != nil {
		conn.Close(websocket.StatusUnsupportedData, domain.UserMessage(err))
		return
	}

	preview, err := s.tools.Enhance.Preview(ctx, asset, s.previewDebounce, func(frame pipeline.Frame) {
		if frame.Err != nil {
			_ = wsjson.Write(ctx, conn, previewEvent{Generation: frame.Generation, Error: domain.UserMessage(frame.Err)})
			return
		}
		encoded, err := s.tools.Deps.Codec.Encode(ctx, frame.Surface, format, quality)
		if err != nil {
			_ = wsjson.Write(ctx, conn, previewEvent{Generation: frame.Generation, Error: domain.UserMessage(err)})
			return
		}
		_ = conn.Write(ctx, websocket.MessageBinary, encoded)
	})
	if err != nil {
		conn.Close(websocket.StatusUnsupportedData, domain.UserMessage(err))
		return
	}
	defer preview.Close()
	preview.Update()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				s.logger.Debug().Err(err).Msg("preview read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var params previewParams
		if err := json.Unmarshal(data, &params); err != nil {
			_ = wsjson.Write(ctx, conn, previewEvent{Error: "params must be a JSON object"})
			continue
		}
		preview.Update(params.stages()...)
	}
}
