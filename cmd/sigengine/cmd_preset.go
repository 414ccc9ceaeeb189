package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signal-enginev1/internal/indicator"
	sqlitestore "signal-enginev1/internal/store/sqlite"
)

var (
	presetCmd = &cobra.Command{
		Use:   "preset",
		Short: "Save and load named indicator parameter sets",
	}
	presetSaveCmd = &cobra.Command{
		Use:   "save <name> <spec>",
		Short: `Validate a single indicator spec and save it, e.g. save fast "example:price=2.5;period=2"`,
		Args:  cobra.ExactArgs(2),
		RunE:  runPresetSave,
	}
	presetShowCmd = &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved preset as a spec",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresetShow,
	}
)

func init() {
	presetCmd.AddCommand(presetSaveCmd, presetShowCmd)
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	name := args[0]
	specs, err := indicator.ParseSpecs(args[1])
	if err != nil {
		return err
	}
	if len(specs) != 1 {
		return fmt.Errorf("a preset holds exactly one indicator, got %d", len(specs))
	}
	if _, err := registry.Build(specs[0]); err != nil {
		return err
	}

	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.SavePreset(name, specs[0].Name, specs[0].Params); err != nil {
		return err
	}
	fmt.Printf("saved preset %q: %s\n", name, specs[0])
	return nil
}

func runPresetShow(cmd *cobra.Command, args []string) error {
	r, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer r.Close()
	spec, err := loadPresetSpec(r, args[0])
	if err != nil {
		return err
	}
	fmt.Println(spec)
	return nil
}

type presetLoader interface {
	LoadPreset(preset string) (indicator string, params map[string]string, err error)
}

// loadPresetSpec loads a preset as a spec labelled with the preset name.
func loadPresetSpec(store presetLoader, name string) (indicator.Spec, error) {
	ind, params, err := store.LoadPreset(name)
	if err != nil {
		return indicator.Spec{}, fmt.Errorf("preset %q: %w", name, err)
	}
	return indicator.Spec{Name: ind, Label: name, Params: params}, nil
}
