package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newModelsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported models and their pricing",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runModels(app)
		},
	}
}

func runModels(app *App) error {
	fmt.Fprintf(app.Out, "%-24s  %-8s  %-6s  %-9s  %s\n", "Model", "Provider", "Kind", "Per image", "Use")
	fmt.Fprintln(app.Out, strings.Repeat("-", 78))

	for _, name := range app.Registry.List() {
		cap, _ := app.Registry.Get(name)
		price := "-"
		if cap.PricePerImage > 0 {
			price = fmt.Sprintf("$%.4f", cap.PricePerImage)
		}
		fmt.Fprintf(app.Out, "%-24s  %-8s  %-6s  %-9s  %s\n", name, cap.Provider, cap.Kind, price, cap.Description)
	}
	return nil
}
