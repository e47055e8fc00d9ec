// gentabs builds small, disposable apps from your source material with an
// LLM: point it at some files, describe what you need, and it renders a
// comparison table, timeline, kanban board, summary, or quiz in the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gentabs/cmd/gentabs/chat"
	"gentabs/internal/agent"
	"gentabs/internal/config"
	"gentabs/internal/generate"
	"gentabs/internal/logging"
	"gentabs/internal/render"
	"gentabs/internal/schema"
	"gentabs/internal/source"
	"gentabs/internal/store"
	"gentabs/internal/workspace"
)

var (
	verbose    bool
	configPath string
	apiKey     string
	sessionID  string
	newSession bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gentabs",
	Short: "Build ephemeral micro-apps from your sources with an LLM",
	Long: `gentabs turns source files and a natural-language instruction into a
small typed app: a comparison table, timeline, kanban board, summary, or quiz.
Run without arguments for the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose, "text")
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractiveChat(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run <instruction>",
	Short: "One-shot generation: build an app and print it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		return runOnce(cmd.Context(), dir, args[0])
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo [name]",
	Short: "Render a bundled demo app",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "framework-research"
		if len(args) > 0 {
			name = args[0]
		}
		fixture, ok := workspace.FixtureByName(name)
		if !ok {
			names := make([]string, 0, 2)
			for _, f := range workspace.Fixtures() {
				names = append(names, f.Name)
			}
			return fmt.Errorf("no demo named %q (have %v)", name, names)
		}
		fmt.Println(render.App(fixture.App, 100))
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources [dir]",
	Short: "List the context sources found in a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		dir := cfg.Workspace.SourceDir
		if len(args) > 0 {
			dir = args[0]
		}
		items, err := source.LoadDir(cmd.Context(), dir)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No sources found.")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%-30s %s (%d bytes)\n", item.Title, item.URL, len(item.Content))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gentabs.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (overrides config and env)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "resume the session with this id")
	rootCmd.Flags().BoolVar(&newSession, "new-session", false, "start a fresh session instead of resuming the last one")

	runCmd.Flags().String("dir", "", "source directory (default from config)")

	rootCmd.AddCommand(runCmd, demoCmd, sourcesCmd)
}

// buildGenerator wires the provider from config and flags.
func buildGenerator(ctx context.Context, cfg *config.Config) (*generate.Generator, error) {
	key := cfg.LLM.APIKey
	if apiKey != "" {
		key = apiKey
	}
	client, err := generate.NewGeminiClient(ctx, key, cfg.LLM.Model, logger)
	if err != nil {
		return nil, err
	}
	return generate.New(client,
		generate.WithLocale(cfg.Locale),
		generate.WithLogger(logger),
	), nil
}

func runInteractiveChat(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	ws := workspace.New()
	session, resumed, err := resolveSession(st)
	if err != nil {
		return err
	}
	if err := st.TouchSession(session); err != nil {
		logger.Warn("touch session failed", zap.Error(err))
	}

	known := map[string]bool{}
	if resumed {
		if err := hydrateSession(ws, st, session, known); err != nil {
			logger.Warn("session restore incomplete", zap.String("session", session), zap.Error(err))
		}
		logger.Info("resumed session", zap.String("session", session))
	}

	// Preload sources from the watched directory, skipping files the
	// restored session already knows by URL.
	if items, err := source.LoadDir(ctx, cfg.Workspace.SourceDir); err == nil {
		for _, item := range items {
			if known[item.URL] {
				continue
			}
			added := ws.AddSource(item)
			if err := st.SaveSource(session, added); err != nil {
				logger.Warn("save source failed", zap.Error(err))
			}
		}
	}

	var watcher *source.Watcher
	if cfg.Workspace.Watch {
		watcher, err = source.NewWatcher(cfg.Workspace.SourceDir, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	model := chat.New(chat.Deps{
		Workspace: ws,
		Store:     st,
		Watcher:   watcher,
		SessionID: session,
		Timeout:   cfg.GetLLMTimeout(),
		Log:       logger,
	})
	orch := agent.NewOrchestrator(gen, model.StatusNotifier(),
		agent.WithStageDelay(cfg.GetStageDelay()),
		agent.WithLogger(logger),
	)
	model = model.WithOrchestrator(orch)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

// resolveSession picks the session to run: an explicit --session id, the most
// recently used session, or a fresh one. It reports whether state should be
// restored from the store.
func resolveSession(st *store.Store) (string, bool, error) {
	if sessionID != "" {
		return sessionID, true, nil
	}
	if !newSession {
		last, err := st.LastSession()
		if err != nil {
			return "", false, err
		}
		if last != "" {
			return last, true, nil
		}
	}
	return uuid.New().String(), false, nil
}

// hydrateSession loads a resumed session's chat log, sources, and latest app
// into the workspace, and records the source URLs it saw in known.
func hydrateSession(ws *workspace.Workspace, st *store.Store, session string, known map[string]bool) error {
	msgs, err := st.Messages(session)
	if err != nil {
		return err
	}
	ws.RestoreMessages(msgs)

	items, err := st.Sources(session)
	if err != nil {
		return err
	}
	for _, item := range items {
		ws.AddSource(item)
		if item.URL != "" {
			known[item.URL] = true
		}
	}

	app, err := st.LatestSnapshot(session)
	if err != nil {
		return err
	}
	if app != nil {
		ws.SetApp(app)
	}
	return nil
}

// runOnce builds one app from a source directory and prints it.
func runOnce(ctx context.Context, dir, instruction string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.Workspace.SourceDir
	}

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	var items []schema.ContextItem
	if loaded, err := source.LoadDir(ctx, dir); err == nil {
		items = loaded
	} else {
		logger.Warn("source directory unavailable, generating without context",
			zap.String("dir", dir), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.GetLLMTimeout())
	defer cancel()

	orch := agent.NewOrchestrator(gen, func(snap []agent.StageStatus) {
		for _, st := range snap {
			if st.Status == agent.StatusWorking {
				fmt.Fprintf(os.Stderr, "%s: %s\n", st.Stage, st.Message)
			}
		}
	}, agent.WithStageDelay(0), agent.WithLogger(logger))

	app, err := orch.ProcessRequest(ctx, items, instruction)
	if err != nil {
		return err
	}

	out, err := render.Pretty(app, 100)
	if err != nil {
		fmt.Println(render.App(app, 100))
		return nil
	}
	fmt.Println(out)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
