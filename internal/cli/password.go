package cli

import (
	"fmt"

	"github.com/dunamismax/artifactkit/internal/password"
	"github.com/spf13/cobra"
)

func newPasswordCommand(app *App) *cobra.Command {
	opts := password.DefaultOptions()
	var (
		noUpper, noLower, noDigits, noSymbols bool
		showStrength                          bool
	)
	cmd := &cobra.Command{
		Use:   "password [--length N --count N ...]",
		Short: "Generate random passwords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Upper = !noUpper
			opts.Lower = !noLower
			opts.Digits = !noDigits
			opts.Symbols = !noSymbols
			out, err := app.Tools.Passwords.Generate(cmd.Context(), opts, app.save)
			if err != nil {
				return err
			}
			for _, p := range out {
				if showStrength {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (%.1f bits)\n", p.Password, p.Strength.Label, p.Strength.Entropy)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.Password)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.Length, "length", "l", opts.Length, "password length")
	f.IntVarP(&opts.Count, "count", "n", opts.Count, "number of passwords")
	f.BoolVar(&noUpper, "no-upper", false, "leave out uppercase letters")
	f.BoolVar(&noLower, "no-lower", false, "leave out lowercase letters")
	f.BoolVar(&noDigits, "no-digits", false, "leave out digits")
	f.BoolVar(&noSymbols, "no-symbols", false, "leave out symbols")
	f.BoolVar(&opts.ExcludeSimilar, "exclude-similar", false, "leave out look-alike characters (il1Lo0O)")
	f.BoolVar(&opts.ExcludeAmbiguous, "exclude-ambiguous", false, "leave out brackets, quotes and punctuation")
	f.BoolVar(&showStrength, "strength", false, "print the strength estimate")
	return cmd
}
