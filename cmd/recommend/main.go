package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"travel_recommend/internal/logger"
)

var (
	configPath string
	cfg        *Config

	portFlag      string
	debugFlag     bool
	catalogFlag   string
	usersFlag     string
	pipelinesFlag string
	historyFlag   string

	topNFlag   int
	userIDFlag string
)

var rootCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Hybrid travel product recommender",
	Long: `recommend serves personalised travel product recommendations
from a product catalog CSV and a user profile snapshot.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRootConfig,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		return a.serve(cmd.Context())
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <user_id>",
	Short: "Print hybrid recommendations for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		recs := a.rec.GetRecommendations(cmd.Context(), args[0], topNFlag)
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by free text",
	Long: `Search products by TF-IDF similarity to a free-text query.

Examples:
  recommend search 溫泉
  recommend search --user alice --top-n 3 "北海道 美食"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		recs := a.rec.SearchByText(cmd.Context(), args[0], userIDFlag, topNFlag)
		return printJSON(cmd.OutOrStdout(), recs)
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <user_id> <tag>",
	Short: "Record a tag click and save the profile snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		if !a.rec.UpdateTagWeight(cmd.Context(), args[0], args[1]) {
			return fmt.Errorf("tag click for %q not recorded", args[0])
		}
		if err := a.rec.Persist(cmd.Context()); err != nil {
			return err
		}
		tags, err := a.rec.TopTags(args[0], 0)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), tags)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the user profile snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		path := cfg.Paths.ExportDir
		if len(args) == 1 {
			path = args[0]
		}
		written, err := a.rec.Export(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), written)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to config file (default configs/config.yaml)")
	pf.StringVar(&portFlag, "port", "", "Server port")
	pf.BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	pf.StringVar(&catalogFlag, "catalog", "", "Path to products CSV")
	pf.StringVar(&usersFlag, "users", "", "Path to user profile snapshot (JSON or YAML)")
	pf.StringVar(&pipelinesFlag, "pipelines", "", "Path to pipelines.json")
	pf.StringVar(&historyFlag, "history", "", "Path to history.jsonl")

	recommendCmd.Flags().IntVarP(&topNFlag, "top-n", "n", 0, "Number of results (0 uses recommend.top_n)")
	searchCmd.Flags().IntVarP(&topNFlag, "top-n", "n", 0, "Number of results (0 uses recommend.top_n)")
	searchCmd.Flags().StringVarP(&userIDFlag, "user", "u", "", "Personalise results for this user")

	rootCmd.AddCommand(serveCmd, recommendCmd, searchCmd, tagCmd, exportCmd)
}

// flagOverrides 只收集显式设置过的 flag
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	flags := cmd.Flags()
	set := func(name, path string, v interface{}) {
		if flags.Changed(name) {
			out[path] = v
		}
	}
	set("port", "server.port", portFlag)
	set("debug", "server.debug", debugFlag)
	set("catalog", "paths.catalog", catalogFlag)
	set("users", "paths.users", usersFlag)
	set("pipelines", "paths.pipelines", pipelinesFlag)
	set("history", "paths.history", historyFlag)
	return out
}

func loadRootConfig(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	var err error
	cfg, err = LoadConfig(configPath, flagOverrides(cmd))
	if err != nil {
		return err
	}
	initLogger(cfg)
	logger.Debug("Config loaded: catalog=%s users=%s", cfg.Paths.Catalog, cfg.Paths.Users)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute 运行根命令
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
