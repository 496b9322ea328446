package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pairwatch/internal/chain"
	"pairwatch/internal/config"
	"pairwatch/internal/dex"
)

func runSources(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	return printSources(cmd.OutOrStdout(), cfg.Sources)
}

func printSources(w io.Writer, sources []config.Source) error {
	topic, err := dex.PairCreatedTopic()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFACTORY\tTOPIC0")
	for _, src := range sources {
		factory, err := chain.CanonicalizeHex(src.Factory)
		if err != nil {
			return fmt.Errorf("source %s: %w", src.Name, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", src.Name, factory, topic.Hex())
	}
	return tw.Flush()
}
