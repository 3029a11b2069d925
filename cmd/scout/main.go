package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/daviddao/scout/internal/auth"
	"github.com/daviddao/scout/internal/backend"
	"github.com/daviddao/scout/internal/briefing"
	"github.com/daviddao/scout/internal/config"
	"github.com/daviddao/scout/internal/db"
	"github.com/daviddao/scout/internal/display"
	"github.com/daviddao/scout/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	dbPath      string
	configPath  string
	jsonOutput  bool
	quietFlag   bool
	verboseFlag bool

	cfg     *config.Config
	logger  *zap.Logger
	store   *db.DB
	client  *backend.Client
	session *briefing.Session
)

var rootCmd = &cobra.Command{
	Use:           "scout",
	Short:         "scout - review and send outreach drafts",
	Long:          "Scout: the morning briefing for outbound. Review AI-drafted outreach, edit, approve, dismiss, or pause.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verboseFlag)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		// Skip the workspace for commands that don't need it
		switch cmd.Name() {
		case "init", "help", "version", "quickstart", "completion":
			return nil
		}

		path := configPath
		if path == "" {
			dir := config.Discover()
			if dir == "" {
				return fmt.Errorf("no scout workspace found, run 'scout init' first")
			}
			path = config.Path(dir)
		}
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}

		p := dbPath
		if p == "" {
			p = config.DBPath(cfg.Dir)
		}
		store, err = db.Open(p)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}

		client, err = backend.New(backend.Options{
			BaseURL:           cfg.Backend.BaseURL,
			TokenSource:       auth.BackendTokenSource(cfg.Backend.Token),
			Timeout:           cfg.Backend.Timeout.Std(),
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Burst:             cfg.Backend.Burst,
			Logger:            logger,
		})
		if err != nil {
			return fmt.Errorf("backend client: %w", err)
		}

		session = briefing.NewSession(client, briefing.Options{
			Journal: store,
			Logger:  logger,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if session != nil {
			session.Close()
		}
		if store != nil {
			store.Close()
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scout version %s\n", Version)
	},
}

var (
	initBackendURL string
	initTokenFile  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .scout/ in the project root",
	Long: `Create .scout/config.yaml and the activity database.

The workspace is created next to the enclosing .git directory, or in the
current directory when there is none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := findProjectRoot()
		if root == "" {
			var err error
			if root, err = os.Getwd(); err != nil {
				return err
			}
		}
		dir := filepath.Join(root, config.DirName)

		c := config.Default()
		c.Backend.BaseURL = initBackendURL
		c.Backend.TokenFile = initTokenFile
		path := config.Path(dir)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := c.Save(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		s, err := db.Open(config.DBPath(dir))
		if err != nil {
			return err
		}
		s.Close()

		ensureGitignore(root)

		if !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized scout at %s\n", dir)
			if initBackendURL == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Set backend.base_url in %s or export SCOUT_BACKEND_URL\n", path)
			}
		}
		return nil
	},
}

// findProjectRoot walks up from cwd looking for a .git directory.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ensureGitignore adds .scout/ to .gitignore if not already present.
func ensureGitignore(root string) {
	gitignorePath := filepath.Join(root, ".gitignore")
	entry := config.DirName + "/"

	data, err := os.ReadFile(gitignorePath)
	if err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == entry || line == config.DirName {
				return
			}
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return // silently skip if can't write
	}
	defer f.Close()

	if len(data) > 0 && data[len(data)-1] != '\n' {
		f.WriteString("\n")
	}
	fmt.Fprintf(f, "\n# Scout workspace (config, token, activity journal)\n%s\n", entry)
}

// loadQueue fetches the briefing queue into the session.
func loadQueue(cmd *cobra.Command) error {
	if err := session.Load(cmd.Context()); err != nil {
		return err
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: .scout/scout.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config path (default: auto-discover .scout/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Debug logging to stderr")

	initCmd.Flags().StringVar(&initBackendURL, "backend-url", "", "Backend base URL")
	initCmd.Flags().StringVar(&initTokenFile, "token-file", "", "File holding the backend API token (relative to .scout/)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		display.ErrorMsg("%v", err)
		os.Exit(1)
	}
}
