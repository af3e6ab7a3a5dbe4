package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/config"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
)

var (
	// Global flags
	verbose   bool
	apiKey    string
	workspace string
	timeout   time.Duration

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sophia",
	Short: "Sophia - conversational coaching assistant",
	Long: `Sophia is a conversational coach that helps you build and keep an
action plan: habits, missions, reflection exercises.

The language model proposes; a deterministic layer guards every change.
Nothing touches your plan without your explicit say-so.

Run without arguments to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The chat has its own rendering, skip the structured logger there.
		if cmd.Use == "sophia" && cmd.CalledAs() == "sophia" {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

// initCmd sets up the .sophia workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Sophia in the current workspace",
	Long: `Creates the .sophia/ directory with a default config.yaml and an
empty database. Run this once per workspace; the chat also does it
lazily on first launch.`,
	RunE: runInit,
}

// statusCmd shows plan and storage health
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show plan and storage status",
	RunE:  showStatus,
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the Sophia version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sophia", config.Default().Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Per-turn timeout")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func loadConfig(ws string) (*config.Config, error) {
	cfg, err := config.Load(ws)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
		if cfg.Recall.APIKey == "" {
			cfg.Recall.APIKey = apiKey
		}
	}
	return cfg, nil
}

// runInit performs the cold-start setup
func runInit(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	logger.Info("Initializing workspace", zap.String("path", ws))

	cfg, err := loadConfig(ws)
	if err != nil {
		return err
	}
	if err := cfg.Save(ws); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	st, err := store.NewStore(dbPath(ws, cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	logger.Info("Workspace ready",
		zap.String("config", ws+"/.sophia/config.yaml"),
		zap.String("database", dbPath(ws, cfg)))
	fmt.Println("Sophia est prête. Lance `sophia` pour discuter.")
	return nil
}

// showStatus reports item counts per status
func showStatus(cmd *cobra.Command, args []string) error {
	ws := resolveWorkspace()
	cfg, err := loadConfig(ws)
	if err != nil {
		return err
	}

	st, err := store.NewStore(dbPath(ws, cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	items, err := st.ListItems(defaultUserID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	counts := map[string]int{}
	for _, it := range items {
		counts[string(it.Status)]++
	}
	logger.Info("Plan status",
		zap.Int("total", len(items)),
		zap.Int("active", counts["active"]),
		zap.Int("pending", counts["pending"]),
		zap.Int("archived", counts["archived"]))

	fmt.Printf("Plan : %d actions (%d actives, %d en attente, %d archivées)\n",
		len(items), counts["active"], counts["pending"], counts["archived"])
	fmt.Printf("Base : %s\n", dbPath(ws, cfg))
	fmt.Printf("Modèle : %s\n", cfg.LLM.Model)
	return nil
}
