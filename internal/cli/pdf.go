package cli

import (
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/export"
	"github.com/spf13/cobra"
)

func newPDFCommand(app *App) *cobra.Command {
	var (
		output      string
		settings    domain.PageSettings
		imageFormat string
		quality     float64
		stretch     bool
	)
	cmd := &cobra.Command{
		Use:   "pdf -o out.pdf IMG...",
		Short: "Combine images into a PDF, one per page, in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := !stretch
			settings.KeepAspect = &keep
			page, err := export.PageOptionsFrom(&settings, imageFormat, quality)
			if err != nil {
				return err
			}

			doc := app.Tools.NewPhotoPDF()
			acq := app.Tools.ImageAcquirer()
			for _, path := range args {
				asset, err := acq.FromFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				if _, err := doc.Add(cmd.Context(), asset); err != nil {
					return err
				}
			}
			art, err := doc.Export(cmd.Context(), page)
			if err != nil {
				return err
			}
			if err := writeArtifact(output, art); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages, %d bytes)\n", output, art.Pages, len(art.Bytes))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output PDF")
	f.StringVar(&settings.Size, "page-size", export.PageA4, "a4, letter, legal or custom")
	f.Float64Var(&settings.WidthMM, "width-mm", 0, "custom page width")
	f.Float64Var(&settings.HeightMM, "height-mm", 0, "custom page height")
	f.StringVar(&settings.Orientation, "orientation", export.OrientationAuto, "portrait, landscape or auto")
	f.Float64Var(&settings.MarginMM, "margin", 10, "page margin in millimetres")
	f.StringVar(&imageFormat, "image-format", "jpeg", "embedded image format: png or jpeg")
	f.Float64Var(&quality, "quality", 0, "embedded JPEG quality in (0,1]")
	f.BoolVar(&stretch, "stretch", false, "fill the page instead of keeping the aspect ratio")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
