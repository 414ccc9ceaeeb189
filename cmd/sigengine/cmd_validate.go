package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [specs]",
	Short: "Parse and validate indicator specs, printing each instance's shape",
	Long: `Validates the given spec list, or the configured INDICATORS / INDICATOR_FILE
when no argument is given. Spec syntax: name[@label][:field=value;field=value],...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	specs := ""
	if len(args) == 1 {
		specs = args[0]
	}
	configs, err := engineConfigs(specs, "")
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TF\tLABEL\tINDICATOR\tVALUES\tSIGNALS\tCONFIG")
	for _, c := range configs {
		for _, ind := range c.Indicators {
			raw, sigs := ind.Config.Size()
			params, _ := json.Marshal(ind.Config)
			fmt.Fprintf(tw, "%ds\t%s\t%s\t%d\t%d\t%s\n", c.TF, ind.Label, ind.Config.Name(), raw, sigs, params)
		}
	}
	tw.Flush()
	fmt.Printf("\navailable indicators: %v\n", registry.Names())
	return nil
}
