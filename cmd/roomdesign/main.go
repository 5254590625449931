package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/manash/roomdesign/internal/chat"
	"github.com/manash/roomdesign/internal/config"
	"github.com/manash/roomdesign/internal/display"
	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/image"
	"github.com/manash/roomdesign/internal/keys"
	"github.com/manash/roomdesign/internal/ledger"
	"github.com/manash/roomdesign/internal/logging"
	"github.com/manash/roomdesign/internal/provider"
	"github.com/manash/roomdesign/internal/provider/gemini"
	"github.com/manash/roomdesign/internal/provider/openai"
	"github.com/manash/roomdesign/internal/repl"
	"github.com/manash/roomdesign/internal/tui"
	"github.com/manash/roomdesign/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAPIKey   string
	flagProvider string
	flagModel    string
	flagVerbose  bool
	flagStyle    string
	flagEdits    []string
	flagOutput   string

	flagParallel    int
	flagStopOnError bool
	flagOutputDir   string
	flagDelay       int
)

type App struct {
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Registry    *models.ModelRegistry
	LoadConfig  func() (*config.Config, error)
	NewKeyStore func() (*keys.Store, error)
	NewProvider func(providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error)
	NewSaver    func() *image.Saver
	// SupportsImages reports whether inline images can be drawn on out.
	SupportsImages func(out io.Writer) bool
	// IsTTY reports whether in and out are an interactive terminal.
	IsTTY func(in io.Reader, out io.Writer) bool
}

func DefaultApp() *App {
	return &App{
		In:       os.Stdin,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Registry: models.DefaultRegistry(),
		LoadConfig: func() (*config.Config, error) {
			return config.Load(".env")
		},
		NewKeyStore:    keys.NewStore,
		NewProvider:    newProvider,
		NewSaver:       image.NewSaver,
		SupportsImages: display.Supported,
		IsTTY:          isTTY,
	}
}

func newProvider(providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	switch providerType {
	case models.ProviderGemini:
		return gemini.New(cfg, registry)
	case models.ProviderOpenAI:
		return openai.New(cfg, registry)
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrProviderNotFound, providerType)
}

func isTTY(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(fin.Fd())) {
		return false
	}
	fout, ok := out.(*os.File)
	return ok && term.IsTerminal(int(fout.Fd()))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roomdesign [photo]",
		Short: "Redesign room photos with AI interior design styles",
		Long: `roomdesign restyles photos of rooms with an AI image model, refines the
result with plain-language edits, compares before and after, and answers
design questions through an assistant chat.

Supported providers:
  - Gemini (gemini-2.5-flash-image, gemini-3-pro-preview)
  - OpenAI (gpt-image-1, gpt-4o-mini)

Examples:
  roomdesign living-room.jpg
  roomdesign restyle bedroom.png --style scandinavian --edit "add a reading nook"
  roomdesign keys set gemini AIza...`,
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), app, args)
		},
	}

	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key for the selected provider (defaults to stored key, then environment)")
	cmd.PersistentFlags().StringVarP(&flagProvider, "provider", "p", "", "provider to use (gemini, openai); defaults to ROOMDESIGN_PROVIDER")
	cmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "image model; defaults to the provider's image model")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log to stderr as well as the log file")

	cmd.AddCommand(newRestyleCmd(app))
	cmd.AddCommand(newBatchCmd(app))
	cmd.AddCommand(newKeysCmd(app))
	cmd.AddCommand(newModelsCmd(app))

	return cmd
}

// runtime is everything a design command needs, built from config, stored
// keys and flags.
type runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	closeLog   func() error
	ledger     *ledger.Store
	registry   *models.ModelRegistry
	factory    *provider.Factory
	imageModel string
	chatModel  string
}

func (rt *runtime) close() {
	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			rt.logger.Warn("failed to close ledger", zap.Error(err))
		}
	}
	if rt.closeLog != nil {
		_ = rt.closeLog()
	}
}

func (rt *runtime) imageProvider() (provider.Provider, *models.ModelCapabilities, error) {
	cap, err := rt.registry.Lookup(rt.imageModel)
	if err != nil {
		return nil, nil, err
	}
	p, err := rt.factory.GetForModel(rt.imageModel)
	if err != nil {
		return nil, nil, err
	}
	return p, cap, nil
}

func bootstrap(app *App) (*runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if flagModel != "" {
		cfg.ImageModel = flagModel
	}

	logger, closeLog, err := logging.New(logging.Options{
		Dir:     cfg.LogDir(),
		Level:   cfg.LogLevel,
		Verbose: flagVerbose,
		Console: app.Err,
	})
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, closeLog: closeLog, registry: app.Registry}

	rt.imageModel, rt.chatModel, err = cfg.Models(app.Registry)
	if err != nil {
		rt.close()
		return nil, err
	}
	imageCap, _ := app.Registry.Get(rt.imageModel)
	if !imageCap.SupportsEdit() {
		rt.close()
		return nil, fmt.Errorf("%w: %s", models.ErrEditNotSupported, rt.imageModel)
	}

	rt.factory, err = buildFactory(app, rt)
	if err != nil {
		rt.close()
		return nil, err
	}

	rt.ledger, err = ledger.NewStore(cfg.DataDir)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}

	logger.Info("roomdesign starting",
		zap.String("version", version),
		zap.String("provider", cfg.Provider),
		zap.String("image_model", rt.imageModel),
		zap.String("chat_model", rt.chatModel))
	return rt, nil
}

// buildFactory registers a provider for every provider with a usable key.
// The providers behind the selected image and chat models must have one.
func buildFactory(app *App, rt *runtime) (*provider.Factory, error) {
	store, err := app.NewKeyStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open key store: %w", err)
	}

	required := map[models.ProviderType]bool{rt.cfg.ProviderType(): true}
	for _, name := range []string{rt.imageModel, rt.chatModel} {
		if cap, ok := app.Registry.Get(name); ok {
			required[cap.Provider] = true
		}
	}

	f := provider.NewFactory(app.Registry)
	for _, pt := range models.ValidProviders() {
		explicit := ""
		if pt == rt.cfg.ProviderType() {
			explicit = flagAPIKey
		}

		var envKeys []keys.EnvKey
		for _, name := range config.EnvKeyNames(pt) {
			envKeys = append(envKeys, keys.EnvKey{Name: name, Value: envValue(rt.cfg, name)})
		}

		apiKey, source, err := store.Resolve(explicit, string(pt), envKeys...)
		if err != nil {
			if required[pt] {
				return nil, err
			}
			continue
		}

		pcfg := &provider.Config{
			APIKey:     apiKey,
			TimeoutSec: rt.cfg.TimeoutSec,
			Logger:     rt.logger,
		}
		if pt == rt.cfg.ProviderType() {
			pcfg.BaseURL = rt.cfg.BaseURL
		}
		p, err := app.NewProvider(pt, pcfg, app.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", pt, err)
		}
		f.Register(p)
		rt.logger.Debug("provider configured", zap.String("provider", string(pt)), zap.String("key_source", source))
	}
	return f, nil
}

func envValue(cfg *config.Config, name string) string {
	switch name {
	case "GEMINI_API_KEY":
		return cfg.GeminiAPIKey
	case "API_KEY":
		return cfg.APIKey
	case "OPENAI_API_KEY":
		return cfg.OpenAIAPIKey
	}
	return ""
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runInteractive(parent context.Context, app *App, args []string) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	rt, err := bootstrap(app)
	if err != nil {
		return err
	}
	defer rt.close()

	imageProv, imageCap, err := rt.imageProvider()
	if err != nil {
		return err
	}
	chatProv, err := rt.factory.GetForModel(rt.chatModel)
	if err != nil {
		return err
	}

	assistant := &chat.Assistant{
		Chatter:  chatProv,
		Model:    rt.chatModel,
		Recorder: rt.ledger,
		Logger:   rt.logger,
	}
	session := chat.NewSession(assistant, rt.logger)
	ed := editor.New(&editor.Config{
		Generator: imageProv,
		Model:     rt.imageModel,
		Provider:  imageCap.Provider,
		Recorder:  rt.ledger,
		Chat:      session,
		Logger:    rt.logger,
	})

	var displayer *display.Displayer
	if app.SupportsImages(app.Out) {
		displayer = display.New(app.Out)
		if w := display.Width(app.Out); w > 0 {
			displayer.SetColumns(w * 2 / 3)
		}
	}

	var compare repl.CompareFunc
	if app.IsTTY(app.In, app.Out) {
		compare = func(ctx context.Context, position float64) (float64, bool, error) {
			return tui.Run(ctx, app.In, app.Out, position)
		}
	}

	r := repl.New(&repl.Config{
		In:        app.In,
		Out:       app.Out,
		Err:       app.Err,
		Editor:    ed,
		Chat:      session,
		Assistant: assistant,
		Factory:   rt.factory,
		Registry:  app.Registry,
		Ledger:    rt.ledger,
		Displayer: displayer,
		Saver:     app.NewSaver(),
		Compare:   compare,
		Logger:    rt.logger,
		Async:     true,
	})

	if len(args) > 0 {
		if err := r.Upload(ctx, args[0]); err != nil {
			return err
		}
	}

	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
