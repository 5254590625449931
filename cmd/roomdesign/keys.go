package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/roomdesign/internal/keys"
	"github.com/manash/roomdesign/pkg/models"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <provider> <key>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysSet(app, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <provider>",
		Short: "Show the stored key for a provider (masked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysGet(app, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "delete <provider>",
		Aliases: []string{"rm"},
		Short:   "Remove the stored key for a provider",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysDelete(app, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List providers with a stored key",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	})

	return cmd
}

func parseProvider(name string) (models.ProviderType, error) {
	p := models.ProviderType(strings.ToLower(name))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown provider %q: must be one of %v", name, models.ValidProviders())
	}
	return p, nil
}

func runKeysSet(app *App, providerName, key string) error {
	p, err := parseProvider(providerName)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	if err := store.Set(string(p), key); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Saved %s key to %s\n", p, store.Path())
	return nil
}

func runKeysGet(app *App, providerName string) error {
	p, err := parseProvider(providerName)
	if err != nil {
		return err
	}

	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	entry, err := store.Entry(string(p))
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s: %s (saved %s)\n", p, keys.MaskKey(entry.Key), humanize.Time(entry.SavedAt))
	return nil
}

func runKeysDelete(app *App, providerName string) error {
	p, err := parseProvider(providerName)
	if err != nil {
		return err
	}

	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	if err := store.Delete(string(p)); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Deleted %s key\n", p)
	return nil
}

func runKeysList(app *App) error {
	store, err := app.NewKeyStore()
	if err != nil {
		return err
	}
	providers, err := store.List()
	if err != nil {
		return err
	}

	if len(providers) == 0 {
		fmt.Fprintln(app.Out, "No keys stored. Use 'roomdesign keys set <provider> <key>'.")
		return nil
	}

	for _, name := range providers {
		entry, err := store.Entry(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "%-8s  %s  saved %s\n", name, keys.MaskKey(entry.Key), humanize.Time(entry.SavedAt))
	}
	return nil
}
