package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	JobStatusCreated    = "created"
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"

	SourceTypeLocalFile   = "local_file"
	SourceTypeObjectStore = "object_store"

	ExportFormatPDF = "pdf"
	ExportFormatZIP = "zip"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateExportJobRequest describes a batch export. ObjectKeys is ordered and
// the order is kept in the output document.
type CreateExportJobRequest struct {
	SourceType  string         `json:"source_type" validate:"required,oneof=local_file object_store"`
	WebhookURL  string         `json:"webhook_url,omitempty" validate:"omitempty,url"`
	ObjectKeys  []string       `json:"object_keys" validate:"required,min=1,dive,required"`
	Format      string         `json:"format" validate:"required,oneof=pdf zip"`
	Steps       []PipelineStep `json:"steps,omitempty" validate:"dive"`
	Page        *PageSettings  `json:"page,omitempty"`
	ImageFormat string         `json:"image_format,omitempty" validate:"omitempty,oneof=png jpeg webp"`
	Quality     float64        `json:"quality,omitempty" validate:"gte=0,lte=1"`
}

type PipelineStep struct {
	ID        string       `json:"id" validate:"required"`
	Action    string       `json:"action" validate:"required,oneof=resize watermark adjust filter"`
	Width     int          `json:"width,omitempty" validate:"gte=0"`
	Watermark *Watermark   `json:"watermark,omitempty"`
	Adjust    *Adjustments `json:"adjust,omitempty"`
	Filter    string       `json:"filter,omitempty"`
}

type Watermark struct {
	Text    string  `json:"text"`
	Opacity float64 `json:"opacity"`
	Gravity string  `json:"gravity"`
}

type Adjustments struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Hue        float64 `json:"hue"`
}

type PageSettings struct {
	Size        string  `json:"size" validate:"omitempty,oneof=a4 letter legal custom"`
	WidthMM     float64 `json:"width_mm,omitempty" validate:"gte=0"`
	HeightMM    float64 `json:"height_mm,omitempty" validate:"gte=0"`
	Orientation string  `json:"orientation,omitempty" validate:"omitempty,oneof=portrait landscape auto"`
	MarginMM    float64 `json:"margin_mm" validate:"gte=0"`
	KeepAspect  *bool   `json:"keep_aspect,omitempty"`
}

type ExportJob struct {
	ID          string
	Status      string
	SourceType  string
	WebhookURL  string
	ObjectKeys  []string
	Format      string
	Steps       []PipelineStep
	Page        *PageSettings
	ImageFormat string
	Quality     float64
	OutputKey   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r CreateExportJobRequest) Validate() error {
	r.SourceType = strings.ToLower(strings.TrimSpace(r.SourceType))
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidParameters, strings.ToLower(fe.Namespace()), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if r.Page != nil && r.Page.Size == "custom" && (r.Page.WidthMM <= 0 || r.Page.HeightMM <= 0) {
		return fmt.Errorf("%w: custom page size requires width_mm and height_mm", ErrInvalidParameters)
	}
	for i, step := range r.Steps {
		switch step.Action {
		case "resize":
			if step.Width <= 0 {
				return fmt.Errorf("%w: steps[%d] resize requires width > 0", ErrInvalidParameters, i)
			}
		case "watermark":
			if step.Watermark == nil || strings.TrimSpace(step.Watermark.Text) == "" {
				return fmt.Errorf("%w: steps[%d] watermark requires text", ErrInvalidParameters, i)
			}
		case "adjust":
			if step.Adjust == nil {
				return fmt.Errorf("%w: steps[%d] adjust requires settings", ErrInvalidParameters, i)
			}
		case "filter":
			if strings.TrimSpace(step.Filter) == "" {
				return fmt.Errorf("%w: steps[%d] filter requires a name", ErrInvalidParameters, i)
			}
		}
	}
	return nil
}
