package cli

import (
	"fmt"

	"github.com/dunamismax/artifactkit/internal/source"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/spf13/cobra"
)

// newCamera is swapped in tests.
var newCamera = source.DefaultCamera

func newCaptureCommand(app *App) *cobra.Command {
	var (
		output  string
		filter  string
		quality float64
	)
	cmd := &cobra.Command{
		Use:   "capture -o photo.jpg [--filter magic]",
		Short: "Take a photo with the first available camera",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := formatFromPath(output)
			if err != nil {
				return err
			}
			capture := app.Tools.NewCapture(newCamera(), app.Config.Camera.Timeout)
			art, err := capture.Photo(cmd.Context(), tools.CaptureRequest{
				Filter:  filter,
				Format:  format,
				Quality: quality,
				Save:    app.save,
			})
			if err != nil {
				return err
			}
			if err := writeArtifact(output, art); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(art.Bytes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image")
	cmd.Flags().StringVar(&filter, "filter", "", "filter applied to the frame, e.g. magic, bw, grayscale")
	cmd.Flags().Float64Var(&quality, "quality", 0, "lossy quality in (0,1]")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
