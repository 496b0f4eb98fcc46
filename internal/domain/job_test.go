package domain

import (
	"errors"
	"testing"
)

func TestCreateExportJobRequestValidate(t *testing.T) {
	valid := CreateExportJobRequest{
		SourceType: SourceTypeObjectStore,
		ObjectKeys: []string{"uploads/a.png", "uploads/b.png"},
		Format:     ExportFormatPDF,
		Steps: []PipelineStep{
			{
				ID:     "thumb_small",
				Action: "resize",
				Width:  640,
			},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got error: %v", err)
	}

	invalid := CreateExportJobRequest{}
	if err := invalid.Validate(); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters for empty request, got %v", err)
	}

	noKeys := CreateExportJobRequest{
		SourceType: SourceTypeLocalFile,
		Format:     ExportFormatZIP,
	}
	if err := noKeys.Validate(); err == nil {
		t.Fatal("expected validation error for missing object_keys")
	}

	unsupportedFormat := CreateExportJobRequest{
		SourceType: SourceTypeLocalFile,
		ObjectKeys: []string{"a.png"},
		Format:     "tar",
	}
	if err := unsupportedFormat.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported format")
	}

	resizeWithoutWidth := CreateExportJobRequest{
		SourceType: SourceTypeLocalFile,
		ObjectKeys: []string{"a.png"},
		Format:     ExportFormatZIP,
		Steps:      []PipelineStep{{ID: "r", Action: "resize"}},
	}
	if err := resizeWithoutWidth.Validate(); err == nil {
		t.Fatal("expected validation error for resize without width")
	}

	customPage := CreateExportJobRequest{
		SourceType: SourceTypeLocalFile,
		ObjectKeys: []string{"a.png"},
		Format:     ExportFormatPDF,
		Page:       &PageSettings{Size: "custom"},
	}
	if err := customPage.Validate(); err == nil {
		t.Fatal("expected validation error for custom page without dimensions")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	wrapped := errors.Join(errors.New("read"), ErrFileTooLarge)
	if got := UserMessage(wrapped); got != "File is too large" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "Something went wrong" {
		t.Fatalf("unexpected fallback message %q", got)
	}
}
