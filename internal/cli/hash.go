package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
	"github.com/dunamismax/artifactkit/internal/hashing"
	"github.com/dunamismax/artifactkit/internal/tools"
	"github.com/spf13/cobra"
)

var errDigestMismatch = errors.New("digest does not match")

func newHashCommand(app *App) *cobra.Command {
	var (
		algs   []string
		text   string
		expect string
	)
	cmd := &cobra.Command{
		Use:   "hash [--alg sha256 ...] (--text T | FILE)",
		Short: "Compute file or text digests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hasText := cmd.Flags().Changed("text")
			if hasText == (len(args) == 1) {
				return errors.New("give either --text or one FILE")
			}

			var (
				res tools.HashResult
				err error
			)
			if hasText {
				res, err = app.Tools.Hash.Text(cmd.Context(), text, algs, app.save)
			} else {
				var asset domain.RawAsset
				if asset, err = app.Tools.Hash.Acquirer().FromFile(cmd.Context(), args[0]); err == nil {
					res, err = app.Tools.Hash.Asset(cmd.Context(), asset, algs, app.save)
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			matched := false
			for _, alg := range hashing.Algorithms {
				digest, ok := res.Digests[alg]
				if !ok {
					continue
				}
				fmt.Fprintf(out, "%-7s %s  %s\n", strings.ToUpper(string(alg)), digest, res.Source)
				if expect != "" && app.Tools.Hash.Compare(expect, digest) {
					matched = true
				}
			}
			if expect != "" {
				if !matched {
					return errDigestMismatch
				}
				fmt.Fprintln(out, "OK: digest matches")
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&algs, "alg", []string{"sha256"}, "algorithms: md5, sha1, sha256, sha512")
	cmd.Flags().StringVar(&text, "text", "", "hash this text instead of a file")
	cmd.Flags().StringVar(&expect, "compare", "", "expected digest to check against")
	return cmd
}
