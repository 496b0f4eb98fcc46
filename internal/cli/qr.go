package cli

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/dunamismax/artifactkit/internal/codec"
	"github.com/dunamismax/artifactkit/internal/qr"
	"github.com/dunamismax/artifactkit/internal/raster"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/spf13/cobra"
)

func newQRCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Generate and read QR codes",
	}
	cmd.AddCommand(newQREncodeCommand(app), newQRDecodeCommand(app))
	return cmd
}

func newQREncodeCommand(app *App) *cobra.Command {
	var (
		output string
		ecc    string
		size   int
		fg, bg string
		kind   string
		fields map[string]string
	)
	cmd := &cobra.Command{
		Use:   "encode (DATA | --type KIND --field k=v ...) -o out.png|svg",
		Short: "Render DATA or a typed payload as a QR code",
		Example: `  artifactkit qr encode https://example.com -o link.png
  artifactkit qr encode --type wifi --field ssid=home --field password=secret -o wifi.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data string
			switch {
			case kind != "" && len(args) == 0:
				payload, err := qr.Build(kind, fields)
				if err != nil {
					return err
				}
				data = payload
			case kind == "" && len(args) == 1:
				data = args[0]
			default:
				return errors.New("give either DATA or --type")
			}
			format, err := formatFromPath(output)
			if err != nil {
				return err
			}
			if format != codec.PNG && format != codec.SVG && format != codec.JPEG {
				return errors.New("qr output must be .png, .svg or .jpg")
			}
			req := tools.QREncodeRequest{
				Data:   data,
				ECC:    qr.ECC(ecc),
				Size:   size,
				Format: format,
				Save:   app.save,
			}
			if req.Foreground, err = parseColorFlag(fg); err != nil {
				return err
			}
			if req.Background, err = parseColorFlag(bg); err != nil {
				return err
			}
			art, err := app.Tools.QR.Encode(cmd.Context(), req)
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
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.png, .svg or .jpg)")
	cmd.Flags().StringVar(&ecc, "ecc", "M", "error correction level: L, M, Q or H")
	cmd.Flags().IntVar(&size, "size", qr.DefaultSize, "image size in pixels")
	cmd.Flags().StringVar(&fg, "fg", "", "foreground colour, e.g. #000000")
	cmd.Flags().StringVar(&bg, "bg", "", "background colour, e.g. #ffffff")
	cmd.Flags().StringVar(&kind, "type", "", "payload type: "+strings.Join(qr.Kinds, ", "))
	cmd.Flags().StringToStringVar(&fields, "field", nil, "payload field as key=value, repeatable")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newQRDecodeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "decode FILE",
		Short: "Read the QR code in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := app.Tools.ImageAcquirer().FromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			text, err := app.Tools.QR.Decode(cmd.Context(), asset, app.save)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func parseColorFlag(v string) (color.Color, error) {
	if v == "" {
		return nil, nil
	}
	c, err := raster.ParseColor(v)
	if err != nil {
		return nil, err
	}
	return c, nil
}
