package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCommand(app *App) *cobra.Command {
	var (
		output  string
		quality float64
	)
	cmd := &cobra.Command{
		Use:   "convert IN -o OUT [--quality Q]",
		Short: "Convert an image or the first page of a PDF",
		Long:  "Convert IN to the format named by OUT's extension (png, jpg, webp, gif, bmp, tiff, pdf).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatFromPath(output)
			if err != nil {
				return err
			}
			asset, err := app.Tools.DocumentAcquirer().FromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			art, err := app.Tools.Convert.Convert(cmd.Context(), asset, format, quality, app.save)
			if err != nil {
				return err
			}
			if err := writeArtifact(output, art); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", output, art.MimeType, len(art.Bytes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().Float64Var(&quality, "quality", 0, "lossy quality in (0,1], 0 for the format default")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
