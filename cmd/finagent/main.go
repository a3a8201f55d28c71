// Package main is the entry point for the FinAgent CLI.
// FinAgent is an AI-powered financial analysis service: a Claude-backed
// market analyst with live market data, news and a REST/websocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/finagent-pro/finagent/internal/agent"
	"github.com/finagent-pro/finagent/internal/config"
	"github.com/finagent-pro/finagent/internal/history"
	"github.com/finagent-pro/finagent/internal/llm"
	"github.com/finagent-pro/finagent/internal/logging"
	"github.com/finagent-pro/finagent/internal/market"
	"github.com/finagent-pro/finagent/internal/news"
	"github.com/finagent-pro/finagent/internal/server"
)

var (
	version = "1.0.0"
	cfgPath string
	envFile string
	verbose bool
	log     *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "finagent",
		Short: "FinAgent - AI-powered market analysis",
		Long: `FinAgent is an AI-powered financial analysis service:
  • Claude-backed market analyst for stocks, sectors and markets
  • Live index, trending and risk dashboards
  • Region-aware market news (US, India, global)
  • REST and websocket API with analysis history

Run the API server:     finagent serve
One-shot analysis:      finagent ask "Analyze AAPL"
Configuration:          finagent config show`,
		PersistentPreRunE: initLogging,
		RunE:              runServe,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.finagent/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with API keys (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FinAgent v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING INITIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════

func initLogging(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	logDir := filepath.Join(home, ".finagent", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory: %v\n", err)
	}

	// Timestamped log file for this session
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFile := filepath.Join(logDir, fmt.Sprintf("finagent_%s.log", timestamp))

	var cfg *logging.Config
	if verbose {
		cfg = logging.VerboseConfig()
	} else {
		cfg = logging.DefaultConfig()
	}
	cfg.FilePath = logFile

	log = logging.New(cfg)
	logging.SetGlobal(log)

	if verbose {
		log.Debug("verbose logging enabled")
		log.Debug("config path: %s", configPath())
	}

	return nil
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".finagent", "config.yaml")
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVICE WIRING
// ═══════════════════════════════════════════════════════════════════════════════

type services struct {
	cfg      *config.Config
	settings config.Settings
	agent    *agent.FinanceAgent
	news     *news.Service
	market   *market.Dashboard
	history  *history.Store
}

func (s *services) close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Warn("history close failed: %v", err)
		}
	}
}

// buildServices assembles the full service stack from the config file and
// environment settings.
func buildServices() (*services, error) {
	cfg, err := config.LoadFromPath(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(envFile)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	provider := llm.NewAnthropicProvider(&llm.ProviderConfig{
		Name:        "anthropic",
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      settings.APIKey,
		Model:       settings.ModelID,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: settings.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	metered := llm.NewMetricsProvider(provider)

	svc := &services{
		cfg:      cfg,
		settings: settings,
		agent:    agent.New(metered, settings.ModelID, settings.Temperature),
	}

	newsTimeout := time.Duration(cfg.News.TimeoutSec) * time.Second
	svc.news = news.NewService(
		news.NewNewsAPIClient("", settings.NewsAPIKey, newsTimeout),
		news.NewMarketauxClient("", settings.MarketauxAPIKey, newsTimeout),
		cfg.News,
	)

	quotes := market.NewYahooClient("", time.Duration(cfg.Market.TimeoutSec)*time.Second)
	svc.market = market.NewDashboard(quotes, cfg.Market)

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
		svc.history = store
	}

	log.Info("finance agent initialized with model: %s", settings.ModelID)
	return svc, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVE COMMAND
// ═══════════════════════════════════════════════════════════════════════════════

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the FinAgent API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := buildServices()
	if err != nil {
		return err
	}
	defer svc.close()

	var historyStore server.HistoryStore
	if svc.history != nil {
		historyStore = svc.history
	}
	srv := server.New(svc.cfg, svc.agent, svc.news, svc.market, historyStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	stop()

	return srv.Stop(context.Background())
}

// ═══════════════════════════════════════════════════════════════════════════════
// ASK COMMAND (One-shot analysis)
// ═══════════════════════════════════════════════════════════════════════════════

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [query]",
		Short: "Run a one-shot financial analysis",
		Long: `Analyze a stock, sector or market question and print the result.

Examples:
  finagent ask "Analyze AAPL"
  finagent ask "Compare TSLA and NVDA"
  finagent ask "What's the outlook for the tech sector?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			svc, err := buildServices()
			if err != nil {
				return err
			}
			defer svc.close()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			result, err := svc.agent.Analyze(ctx, query)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			fmt.Println(renderMarkdown(result.Response))

			if svc.history != nil {
				saveCtx, cancelSave := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancelSave()
				if err := svc.history.SaveAnalysis(saveCtx, &history.Record{
					Query:        result.Query,
					Response:     result.Response,
					Model:        result.Model,
					InputTokens:  result.InputTokens,
					OutputTokens: result.OutputTokens,
					DurationMS:   result.Duration.Milliseconds(),
				}); err != nil {
					log.Warn("failed to save analysis history: %v", err)
				}
			}
			return nil
		},
	}
}

// renderMarkdown renders the analysis with Glamour, falling back to plain
// text when the terminal renderer cannot be built.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	rendered = strings.TrimRight(rendered, "\n")

	return lipgloss.NewStyle().Padding(0, 2).Render(rendered)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIG COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage FinAgent configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromPath(configPath())
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Printf("# %s\n%s", configPath(), out)

			settings, err := config.LoadSettings(envFile)
			if err != nil {
				fmt.Printf("\n# environment: %v\n", err)
				return nil
			}
			redacted := settings.Redacted()
			fmt.Println("\n# environment")
			fmt.Printf("model_id: %s\n", redacted.ModelID)
			fmt.Printf("temperature: %g\n", redacted.Temperature)
			fmt.Printf("anthropic_api_key: %s\n", redacted.APIKey)
			fmt.Printf("newsapi_key: %s\n", redacted.NewsAPIKey)
			fmt.Printf("marketaux_api_key: %s\n", redacted.MarketauxAPIKey)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists at %s", path)
			}

			cfg := config.Default()
			if err := cfg.SaveToPath(path); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	})

	return cmd
}
