package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gollh/internal/parameters"
)

func newGridCmd(_ *rootOptions) *cobra.Command {
	var extraBins bool

	cmd := &cobra.Command{
		Use:   "grid [name=lower:upper:delta | name=v1,v2,...]...",
		Short: "Print the permutation list of a parameter grid set",
		Long: `Print every parameter combination of a set of grids in canonical order:
the first grid varies slowest, the last fastest.

Example: gollh-cli grid gamma=1:4:0.5 sigma=0.1,0.2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := parseGridSet(args)
			if err != nil {
				return err
			}
			if extraBins {
				set = set.WithExtraLowerAndUpperBin()
			}
			return printGridSet(cmd.OutOrStdout(), set)
		},
	}
	cmd.Flags().BoolVar(&extraBins, "extra-bins", false, "Extend every grid by one point below and above")
	return cmd
}

func parseGridSet(args []string) (*parameters.GridSet, error) {
	grids := make([]*parameters.Grid, 0, len(args))
	for _, arg := range args {
		g, err := parseGrid(arg)
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}
	return parameters.NewGridSet(grids...)
}

// parseGrid accepts "name=lower:upper:delta" or "name=v1,v2,...".
func parseGrid(arg string) (*parameters.Grid, error) {
	name, values, ok := strings.Cut(arg, "=")
	if !ok || name == "" || values == "" {
		return nil, fmt.Errorf("invalid grid %q: expected name=lower:upper:delta or name=v1,v2", arg)
	}
	if parts := strings.Split(values, ":"); len(parts) == 3 {
		v, err := parseFloats(parts)
		if err != nil {
			return nil, fmt.Errorf("grid %s: %w", name, err)
		}
		return parameters.NewLinearGrid(name, v[0], v[1], v[2])
	}
	v, err := parseFloats(strings.Split(values, ","))
	if err != nil {
		return nil, fmt.Errorf("grid %s: %w", name, err)
	}
	return parameters.NewGrid(name, v)
}

func parseFloats(parts []string) ([]float64, error) {
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func printGridSet(out io.Writer, set *parameters.GridSet) error {
	names := set.Names()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\t"+strings.Join(names, "\t"))
	for i, p := range set.ParameterPermutationDictList() {
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = strconv.FormatFloat(p[n], 'g', -1, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
