// Command vellum is the terminal entrypoint for the Vellum agent runtime.
//
// It loads a YAML configuration file, wires an LLM provider and a session
// store, and drives the agentic loop either interactively (serve) or against
// a stored JSONL trace (trace). Channel adapters, onboarding wizards, plugin
// marketplaces, and credential stores are external collaborators reached
// through interfaces elsewhere in the module; this binary only assembles the
// runtime core.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vellum-ai/vellum/internal/agent"
	"github.com/vellum-ai/vellum/internal/agent/providers"
	"github.com/vellum-ai/vellum/internal/config"
	vellumcontext "github.com/vellum-ai/vellum/internal/context"
	"github.com/vellum-ai/vellum/internal/permission"
	"github.com/vellum-ai/vellum/internal/plugins"
	"github.com/vellum-ai/vellum/internal/sessions"
	"github.com/vellum-ai/vellum/internal/snapshots"
	"github.com/vellum-ai/vellum/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the vellum command tree.
func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vellum",
		Short:   "Vellum agent runtime",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	}

	cmd.AddCommand(
		buildServeCmd(),
		buildMigrateCmd(),
		buildPluginsCmd(),
		buildTraceCmd(),
	)

	return cmd
}

// resolveConfigPath returns path unchanged if set, otherwise the default
// config location in the user's home directory.
func resolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.vellum/config.yaml"
	}
	return "vellum.yaml"
}

// openDB opens the database connection described by the server config's
// database URL. It is shared by the serve and migrate commands.
func openDB(cfg *config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return nil, fmt.Errorf("database.url is not configured")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ccCfg := sessions.DefaultCockroachConfig()
	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	} else {
		db.SetMaxOpenConns(ccCfg.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(ccCfg.ConnMaxLifetime)
	}
	return db, nil
}

// buildStore opens the configured session store. With no database URL
// configured it falls back to an in-memory store, which keeps `vellum serve`
// usable without a CockroachDB instance for local experimentation.
func buildStore(cfg *config.Config) (sessions.Store, func(), error) {
	if strings.TrimSpace(cfg.Database.URL) == "" {
		slog.Info("no database.url configured, using in-memory session store")
		return sessions.NewMemoryStore(), func() {}, nil
	}
	ccCfg := sessions.DefaultCockroachConfig()
	if cfg.Database.MaxConnections > 0 {
		ccCfg.MaxOpenConns = cfg.Database.MaxConnections
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		ccCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}
	store, err := sessions.NewCockroachStoreFromDSN(cfg.Database.URL, ccCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return store, func() { store.DB().Close() }, nil
}

// buildSnapshotPoller constructs a background file-snapshot poller when
// snapshots.enabled is set and a workspace path is configured. It returns a
// nil poller, not an error, when snapshots are disabled or there is no
// workspace to watch.
func buildSnapshotPoller(cfg *config.Config) (*snapshots.Poller, error) {
	if !cfg.Snapshots.Enabled || strings.TrimSpace(cfg.Workspace.Path) == "" {
		return nil, nil
	}

	store, err := snapshots.NewStore(cfg.Snapshots.Dir)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	workspacePath := cfg.Workspace.Path
	poller, err := snapshots.NewPoller(store, cfg.Snapshots.PollInterval, func() (string, map[string][]byte, error) {
		files, err := collectWorkspaceFiles(workspacePath)
		if err != nil {
			return "", nil, err
		}
		return "poll", files, nil
	}, func(err error) {
		slog.Warn("snapshot poller error", "error", err)
	})
	if err != nil {
		return nil, fmt.Errorf("start snapshot poller: %w", err)
	}
	return poller, nil
}

// collectWorkspaceFiles reads every regular file under root into memory,
// keyed by path relative to root. It skips the snapshot store's own
// directory, VCS metadata, and hidden directories, so polling never shadows
// its own output.
func collectWorkspaceFiles(root string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if name == ".git" || name == ".vellum" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files[rel] = content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace: %w", err)
	}
	return files, nil
}

// buildProvider constructs the LLM provider named by cfg.LLM.DefaultProvider.
func buildProvider(cfg *config.Config) (agent.LLMProvider, error) {
	name := cfg.LLM.DefaultProvider
	if name == "" {
		return nil, fmt.Errorf("llm.default_provider is not configured")
	}
	providerCfg, ok := cfg.LLM.Providers[name]
	if !ok {
		return nil, fmt.Errorf("llm.providers has no entry for %q", name)
	}

	switch name {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       providerCfg.APIKey,
			BaseURL:      providerCfg.BaseURL,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIProvider(providerCfg.APIKey), nil
	case "azure", "azure-openai":
		return providers.NewAzureOpenAIProvider(providers.AzureOpenAIConfig{
			APIKey:       providerCfg.APIKey,
			Endpoint:     providerCfg.BaseURL,
			APIVersion:   providerCfg.APIVersion,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "google", "gemini":
		return providers.NewGoogleProvider(providers.GoogleConfig{
			APIKey:       providerCfg.APIKey,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "bedrock":
		return providers.NewBedrockProvider(providers.BedrockConfig{
			Region:       providerCfg.BaseURL,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "ollama":
		return providers.NewOllamaProvider(providers.OllamaConfig{
			BaseURL:      providerCfg.BaseURL,
			DefaultModel: providerCfg.DefaultModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// =============================================================================
// serve
// =============================================================================

func buildServeCmd() *cobra.Command {
	var (
		configPath string
		systemFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start an interactive terminal session against the agent runtime",
		Long: `Start an interactive terminal session against the agent runtime.

Loads configuration, opens the session store and LLM provider, and drives
the agentic loop over stdin/stdout. Send Ctrl-D to exit; empty lines are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			return runServe(cmd.Context(), configPath, systemFile)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&systemFile, "system", "", "Path to a file containing the system prompt")
	return cmd
}

func runServe(ctx context.Context, configPath, systemFile string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := plugins.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("plugin validation failed: %w", err)
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	defaultModel := cfg.LLM.Providers[cfg.LLM.DefaultProvider].DefaultModel

	contextMgr := vellumcontext.NewManager(&agent.ProviderSummarizer{
		Provider: provider,
		Model:    defaultModel,
	}, vellumcontext.NewThresholdTable())

	permissionEngine := permission.NewEngine(permission.TrustMode(cfg.Permission.TrustMode), cfg.Workspace.Path)

	snapshotPoller, err := buildSnapshotPoller(cfg)
	if err != nil {
		return fmt.Errorf("build snapshot poller: %w", err)
	}
	if snapshotPoller != nil {
		snapshotPoller.Start()
		defer snapshotPoller.Stop()
	}

	loopCfg := &agent.LoopConfig{
		MaxIterations:       10,
		MaxTokens:           4096,
		EnableBackpressure:  true,
		StreamToolResults:   true,
		ContextManager:      contextMgr,
		ContextWindowTokens: vellumcontext.DefaultContextWindow,
		PermissionEngine:    permissionEngine,
	}

	runtime := agent.NewAgenticRuntime(provider, store, loopCfg)
	runtime.SetDefaultModel(defaultModel)
	if systemFile != "" {
		data, err := os.ReadFile(systemFile)
		if err != nil {
			return fmt.Errorf("read system prompt: %w", err)
		}
		runtime.SetSystemPrompt(string(data))
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session := &models.Session{
		ID:        uuidLike("session"),
		Provider:  cfg.LLM.DefaultProvider,
		Model:     defaultModel,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.Create(ctx, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	slog.Info("agent runtime ready", "provider", cfg.LLM.DefaultProvider, "session", session.ID)
	fmt.Println("vellum: type a message and press enter (Ctrl-D to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		msg := &models.Message{
			ID:        uuidLike("msg"),
			SessionID: session.ID,
			Role:      models.RoleUser,
			Content:   line,
			CreatedAt: time.Now(),
		}

		chunks, err := runtime.Process(ctx, session, msg)
		if err != nil {
			slog.Error("process failed", "error", err)
			continue
		}
		for chunk := range chunks {
			if chunk.Error != nil {
				fmt.Printf("\n[error] %s\n", chunk.Error.Error())
				continue
			}
			if chunk.Text != "" {
				fmt.Print(chunk.Text)
			}
		}
		fmt.Println()

		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
			return nil
		default:
		}
	}

	return nil
}

// uuidLike produces a readable, time-ordered identifier without pulling a
// randomness dependency into the hot path of an interactive command.
func uuidLike(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// =============================================================================
// migrate
// =============================================================================

func buildMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Ensure the session store schema exists",
		Long: `Create the sessions and messages tables if they do not already exist.

This is idempotent: running it against an already-migrated database is a
no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sessions.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

// =============================================================================
// plugins
// =============================================================================

func buildPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Inspect plugins registered with the runtime",
	}
	cmd.AddCommand(buildPluginsListCmd())
	return cmd
}

func buildPluginsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered plugins and their load status",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pluginCfg := &plugins.PluginConfig{
				Enabled: true,
				Paths:   cfg.Plugins.Load.Paths,
				Entries: make(map[string]plugins.PluginEntryConfig, len(cfg.Plugins.Entries)),
			}
			for id, entry := range cfg.Plugins.Entries {
				enabled := entry.Enabled
				pluginCfg.Entries[id] = plugins.PluginEntryConfig{
					Enabled: &enabled,
					Config:  entry.Config,
				}
			}

			if err := plugins.LoadPlugins(cmd.Context(), pluginCfg); err != nil {
				return fmt.Errorf("load plugins: %w", err)
			}

			records := plugins.DefaultRegistry.Plugins()
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No plugins registered.")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(out, "  %s (%s) [%s]\n", rec.ID, rec.Version, rec.Status)
				if rec.Error != "" {
					fmt.Fprintf(out, "    error: %s\n", rec.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	return cmd
}

// =============================================================================
// trace
// =============================================================================

func buildTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Manage JSONL trace files for debugging and replay",
		Long: `Manage JSONL trace files for debugging and replay.

Trace files record agent events in JSONL format for:
- Debugging agent behavior
- Replaying runs for testing
- Computing statistics from historical runs
- Validating trace structure

Example workflow:
  vellum trace validate run.jsonl     # Check trace structure
  vellum trace stats run.jsonl        # View computed statistics
  vellum trace replay run.jsonl       # Replay events to stdout`,
	}
	cmd.AddCommand(
		buildTraceValidateCmd(),
		buildTraceStatsCmd(),
		buildTraceReplayCmd(),
	)
	return cmd
}

func buildTraceValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a trace file structure",
		Long: `Validate a JSONL trace file for structural correctness.

Checks:
- Header has valid version
- First event is run.started
- Last event is run.finished or run.error
- Sequences are strictly increasing
- All events can be parsed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			out := cmd.OutOrStdout()

			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open trace file: %w", err)
			}
			defer f.Close()

			reader, err := agent.NewTraceReader(f)
			if err != nil {
				return fmt.Errorf("failed to read trace: %w", err)
			}

			replayer := agent.NewTraceReplayer(reader, agent.NopSink{})
			stats, err := replayer.Replay(cmd.Context())
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}

			header := reader.Header()
			fmt.Fprintf(out, "Trace: %s\n", filePath)
			fmt.Fprintf(out, "  Run ID:     %s\n", header.RunID)
			fmt.Fprintf(out, "  Version:    %d\n", header.Version)
			fmt.Fprintf(out, "  Started:    %s\n", header.StartedAt.Format(time.RFC3339))
			if header.AppVersion != "" {
				fmt.Fprintf(out, "  App:        %s\n", header.AppVersion)
			}
			if header.Environment != "" {
				fmt.Fprintf(out, "  Env:        %s\n", header.Environment)
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Events: %d (seq %d..%d)\n", stats.EventCount, stats.FirstSequence, stats.LastSequence)
			fmt.Fprintln(out)

			if stats.Valid() {
				fmt.Fprintln(out, "Trace is valid")
				return nil
			}

			fmt.Fprintln(out, "Validation errors:")
			for _, e := range stats.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
			return fmt.Errorf("trace validation failed with %d errors", len(stats.Errors))
		},
	}
	return cmd
}

func buildTraceStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Compute and display statistics from a trace file",
		Long: `Recompute run statistics from a JSONL trace file.

Statistics include:
- Timing (wall time, model time, tool time)
- Token counts (input/output)
- Iteration and tool call counts
- Error counts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			out := cmd.OutOrStdout()

			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open trace file: %w", err)
			}
			defer f.Close()

			reader, err := agent.NewTraceReader(f)
			if err != nil {
				return fmt.Errorf("failed to read trace: %w", err)
			}

			stats, err := agent.ReplayToStats(reader)
			if err != nil {
				return fmt.Errorf("failed to compute stats: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(out, "Run Statistics: %s\n", stats.RunID)
			fmt.Fprintln(out, strings.Repeat("-", 40))

			fmt.Fprintln(out, "Timing:")
			fmt.Fprintf(out, "  Wall time:    %v\n", stats.WallTime)
			fmt.Fprintf(out, "  Model time:   %v\n", stats.ModelWallTime)
			fmt.Fprintf(out, "  Tool time:    %v\n", stats.ToolWallTime)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Counts:")
			fmt.Fprintf(out, "  Turns:        %d\n", stats.Turns)
			fmt.Fprintf(out, "  Iterations:   %d\n", stats.Iters)
			fmt.Fprintf(out, "  Tool calls:   %d\n", stats.ToolCalls)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Tokens:")
			fmt.Fprintf(out, "  Input:        %d\n", stats.InputTokens)
			fmt.Fprintf(out, "  Output:       %d\n", stats.OutputTokens)
			fmt.Fprintln(out)

			if stats.Errors > 0 {
				fmt.Fprintf(out, "Errors: %d\n", stats.Errors)
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")
	return cmd
}

func buildTraceReplayCmd() *cobra.Command {
	var (
		speed    float64
		fromSeq  uint64
		toSeq    uint64
		filter   string
		showTime bool
		view     string
	)

	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay trace events to stdout",
		Long: `Replay events from a JSONL trace file to stdout.

Use for:
- Watching agent behavior unfold
- Debugging specific sequences
- Filtering to specific event types

Speed control:
  --speed 0     Instant (default)
  --speed 1     Real-time
  --speed 2     2x speed
  --speed 0.5   Half speed

Views:
  --view=default   Standard event replay (default)
  --view=context   Show only context packing decisions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			out := cmd.OutOrStdout()

			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open trace file: %w", err)
			}
			defer f.Close()

			reader, err := agent.NewTraceReader(f)
			if err != nil {
				return fmt.Errorf("failed to read trace: %w", err)
			}

			var printSink agent.EventSink
			if view == "context" {
				printSink = agent.NewCallbackSink(func(_ context.Context, e models.AgentEvent) {
					if e.Type != models.AgentEventContextPacked {
						return
					}

					var prefix string
					if showTime {
						prefix = fmt.Sprintf("[%s] ", e.Time.Format("15:04:05.000"))
					}

					fmt.Fprintf(out, "%sContext Packed (iter=%d)\n", prefix, e.IterIndex)

					if e.Context != nil {
						ctx := e.Context
						fmt.Fprintf(out, "   Budget:     %d/%d chars, %d/%d msgs\n",
							ctx.UsedChars, ctx.BudgetChars, ctx.UsedMessages, ctx.BudgetMessages)
						fmt.Fprintf(out, "   Messages:   %d candidates, %d included, %d dropped\n",
							ctx.Candidates, ctx.Included, ctx.Dropped)
						if ctx.SummaryUsed {
							fmt.Fprintf(out, "   Summary:    included (%d chars)\n", ctx.SummaryChars)
						}
						if len(ctx.Items) > 0 {
							fmt.Fprintln(out, "   Items:")
							for _, item := range ctx.Items {
								fmt.Fprintf(out, "     %-8s %5d chars  %-12s  %s\n",
									item.Kind, item.Chars, item.Reason, item.ID)
							}
						}
					}
					fmt.Fprintln(out)
				})
			} else {
				printSink = agent.NewCallbackSink(func(_ context.Context, e models.AgentEvent) {
					if filter != "" && !strings.Contains(string(e.Type), filter) {
						return
					}

					var prefix string
					if showTime {
						prefix = fmt.Sprintf("[%s] ", e.Time.Format("15:04:05.000"))
					}

					switch e.Type {
					case models.AgentEventRunStarted:
						fmt.Fprintf(out, "%sRun started (run_id=%s)\n", prefix, e.RunID)

					case models.AgentEventRunFinished:
						fmt.Fprintf(out, "%sRun finished\n", prefix)
						if e.Stats != nil && e.Stats.Run != nil {
							fmt.Fprintf(out, "  wall=%v iters=%d tools=%d\n",
								e.Stats.Run.WallTime, e.Stats.Run.Iters, e.Stats.Run.ToolCalls)
						}

					case models.AgentEventRunError:
						if e.Error != nil {
							fmt.Fprintf(out, "%sError: %s\n", prefix, e.Error.Message)
						}

					case models.AgentEventIterStarted:
						fmt.Fprintf(out, "%sIteration %d started\n", prefix, e.IterIndex)

					case models.AgentEventIterFinished:
						fmt.Fprintf(out, "%sIteration %d finished\n", prefix, e.IterIndex)

					case models.AgentEventToolStarted:
						if e.Tool != nil {
							fmt.Fprintf(out, "%sTool: %s (call_id=%s)\n", prefix, e.Tool.Name, e.Tool.CallID)
						}

					case models.AgentEventToolFinished:
						if e.Tool != nil {
							fmt.Fprintf(out, "%s%s completed (%v)\n", prefix, e.Tool.Name, e.Tool.Elapsed)
						}

					case models.AgentEventModelDelta:
						if e.Stream != nil && e.Stream.Delta != "" {
							fmt.Fprint(out, e.Stream.Delta)
						}

					case models.AgentEventModelCompleted:
						fmt.Fprintln(out)
						if e.Stream != nil {
							fmt.Fprintf(out, "%s  [tokens: in=%d out=%d]\n",
								prefix, e.Stream.InputTokens, e.Stream.OutputTokens)
						}

					case models.AgentEventContextPacked:
						if e.Context != nil {
							fmt.Fprintf(out, "%sContext: %d/%d msgs, %d dropped\n",
								prefix, e.Context.UsedMessages, e.Context.BudgetMessages, e.Context.Dropped)
						}

					default:
						fmt.Fprintf(out, "%s[%s] seq=%d\n", prefix, e.Type, e.Sequence)
					}
				})
			}

			var opts []agent.ReplayOption
			if speed > 0 {
				opts = append(opts, agent.WithSpeed(speed))
			}
			if fromSeq > 0 || toSeq > 0 {
				opts = append(opts, agent.WithSequenceRange(fromSeq, toSeq))
			}

			replayer := agent.NewTraceReplayer(reader, printSink, opts...)

			fmt.Fprintf(out, "Replaying: %s\n", filePath)
			fmt.Fprintf(out, "Run ID: %s\n", reader.Header().RunID)
			if view == "context" {
				fmt.Fprintln(out, "View: context packing decisions")
			}
			fmt.Fprintln(out, strings.Repeat("-", 40))

			stats, err := replayer.Replay(cmd.Context())
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}

			fmt.Fprintln(out, strings.Repeat("-", 40))
			fmt.Fprintf(out, "Replayed %d events\n", stats.EventCount)

			if !stats.Valid() {
				fmt.Fprintln(out, "Warnings:")
				for _, e := range stats.Errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 0, "Replay speed (0=instant, 1=real-time, 2=2x)")
	cmd.Flags().Uint64Var(&fromSeq, "from", 0, "Start from sequence number")
	cmd.Flags().Uint64Var(&toSeq, "to", 0, "Stop at sequence number")
	cmd.Flags().StringVar(&filter, "filter", "", "Filter events by type substring (e.g., 'tool', 'model')")
	cmd.Flags().BoolVar(&showTime, "time", false, "Show timestamps for each event")
	cmd.Flags().StringVar(&view, "view", "default", "Output view (default, context)")

	return cmd
}
