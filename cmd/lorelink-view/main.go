package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain/tooltip"
	"github.com/kailas-cloud/lorelink/internal/version"
	"github.com/kailas-cloud/lorelink/internal/viewer"
	"github.com/kailas-cloud/lorelink/pkg/client"
)

var (
	catalogPath string
	serverURL   string
	campaign    string
	apiKey      string
	textPath    string
	logPath     string
	debounceMs  int
	graceMs     int
)

var rootCmd = &cobra.Command{
	Use:   "lorelink-view [entity-id]",
	Short: "Browse a campaign wiki with entity previews in the terminal",
	Long: `Renders an entity page (or a text file) with entity mentions linked.

Hover a reference to preview it, click to pin the preview, press enter on a
pinned preview to open that entity's page and b to go back.

Examples:
  lorelink-view --catalog campaign.yaml npc-aerith
  lorelink-view --catalog campaign.yaml --text notes/session-3.md
  lorelink-view --server http://localhost:8080 --campaign ashes npc-aerith`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	Version:       version.String(),
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&catalogPath, "catalog", "", "local catalog YAML file")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "lorelink server base URL")
	rootCmd.Flags().StringVar(&campaign, "campaign", "", "campaign to read from the server")
	rootCmd.Flags().StringVar(&apiKey, "api-key", os.Getenv("LORELINK_API_KEY"), "server API key (default $LORELINK_API_KEY)")
	rootCmd.Flags().StringVar(&textPath, "text", "", "show this text file instead of an entity page")
	rootCmd.Flags().StringVar(&logPath, "log", "", "write debug logs to this file")
	rootCmd.Flags().IntVar(&debounceMs, "debounce-ms", int(viewer.DefaultDebounce/time.Millisecond), "preview fetch delay")
	rootCmd.Flags().IntVar(&graceMs, "grace-ms", int(tooltip.DefaultGracePeriod/time.Millisecond), "preview close delay")
	rootCmd.MarkFlagsMutuallyExclusive("catalog", "server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := newFileLogger(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("Starting lorelink viewer",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var startID string
	if len(args) == 1 {
		startID = args[0]
	}

	var src viewer.Source
	switch {
	case catalogPath != "":
		local, err := viewer.OpenLocal(ctx, catalogPath, log)
		if err != nil {
			return err
		}
		defer func() { _ = local.Close() }()

		dups, err := local.Duplicates(ctx)
		if err != nil {
			return err
		}
		for _, d := range dups {
			log.Warn("Entity name shared by several entities", zap.String("term", d.Term), zap.Strings("entity_ids", d.EntityIDs))
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q names %v; the first one is linked\n", d.Term, d.EntityIDs)
		}
		if startID == "" && textPath == "" {
			if startID, err = local.FirstEntityID(ctx); err != nil {
				return err
			}
		}
		src = local

	case serverURL != "":
		c, err := client.New(serverURL, client.WithAPIKey(apiKey))
		if err != nil {
			return err
		}
		if src, err = viewer.NewRemote(c, campaign); err != nil {
			return err
		}

	default:
		return errors.New("one of --catalog or --server is required")
	}

	opts := []viewer.Option{
		viewer.WithLogger(log),
		viewer.WithDebounce(time.Duration(debounceMs) * time.Millisecond),
		viewer.WithGracePeriod(time.Duration(graceMs) * time.Millisecond),
	}
	switch {
	case textPath != "":
		data, err := os.ReadFile(filepath.Clean(textPath))
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		opts = append(opts, viewer.WithText(filepath.Base(textPath), string(data)))
	case startID != "":
		opts = append(opts, viewer.WithStartPage(startID))
	default:
		return errors.New("an entity id or --text is required")
	}

	p := tea.NewProgram(viewer.New(src, opts...), tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}

// newFileLogger logs to path, or nowhere: the terminal belongs to the UI.
func newFileLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l.Named("lorelink-view"), nil
}
