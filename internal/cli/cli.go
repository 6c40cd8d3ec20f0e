package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/tokbudget/internal/conf"
	"github.com/tokbudget/internal/gate"
	"github.com/tokbudget/internal/loader"
	"github.com/tokbudget/internal/logging"
	"github.com/tokbudget/internal/tokenizer"
)

// ErrNoInput is returned when no path is given and stdin is a terminal.
var ErrNoInput = errors.New("no input: pass a file path or pipe text on stdin")

// NewCLI returns the root command. newLogger may be nil, in which case the logger is built from config.
func NewCLI(newLogger func(cfg *conf.ConfigTpl) (*zap.Logger, error)) *cobra.Command {
	if newLogger == nil {
		newLogger = func(cfg *conf.ConfigTpl) (*zap.Logger, error) {
			return logging.New(cfg.Env, cfg.Logger.Level)
		}
	}

	rootCmd := &cobra.Command{
		Use:           conf.AppName,
		Short:         "Count cl100k tokens and enforce a token budget",
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file (CONFIG_FILE_PATH takes precedence)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	countCmd := &cobra.Command{
		Use:   "count [FILE...]",
		Short: "Count tokens of files or stdin and reject inputs over the budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args, newLogger)
		},
	}
	countCmd.Flags().Int("limit", 0, "Token limit (defaults to budget.token_limit)")
	countCmd.Flags().String("strategy", "", "Counting strategy: exact or approximate")
	countCmd.Flags().StringSlice("allow-special", nil, "Special tokens to honor, or \"all\"")
	countCmd.Flags().String("ranks-file", "", "Load ranks from this tiktoken file instead of the configured source")
	countCmd.Flags().Bool("ids", false, "Also print token ids (exact strategy only)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", conf.AppName, conf.AppVersion)
		},
	}

	rootCmd.AddCommand(countCmd, versionCmd)
	return rootCmd
}

// loadConfig layers command line flags over the config file.
func loadConfig(cmd *cobra.Command) (*conf.ConfigTpl, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := conf.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logger.Level = v
	}
	if v, _ := cmd.Flags().GetInt("limit"); v > 0 {
		cfg.Budget.TokenLimit = v
	}
	if v, _ := cmd.Flags().GetString("strategy"); v != "" {
		cfg.Encoder.Strategy = v
	}
	if v, _ := cmd.Flags().GetStringSlice("allow-special"); len(v) > 0 {
		cfg.Encoder.AllowedSpecials = v
	}
	if v, _ := cmd.Flags().GetString("ranks-file"); v != "" {
		cfg.Ranks.Source = conf.SourceFile
		cfg.Ranks.Path = v
	}

	return cfg, cfg.Validate()
}

func rankSource(cfg *conf.ConfigTpl) loader.Source {
	switch cfg.Ranks.Source {
	case conf.SourceFile:
		return loader.FileSource{Path: cfg.Ranks.Path}
	case conf.SourceRemote:
		return loader.NewRemoteSource(cfg.Ranks.URL)
	}
	return loader.OfflineSource{}
}

func allowedSpecials(cfg *conf.ConfigTpl, table *tokenizer.RankTable) tokenizer.SpecialSet {
	for _, lit := range cfg.Encoder.AllowedSpecials {
		if strings.EqualFold(lit, conf.AllSpecials) {
			return table.AllSpecials()
		}
	}
	return tokenizer.NewSpecialSet(cfg.Encoder.AllowedSpecials...)
}

type result struct {
	name   string
	tokens int
	ids    []int
}

func runCount(cmd *cobra.Command, args []string, newLogger func(*conf.ConfigTpl) (*zap.Logger, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	printIDs, _ := cmd.Flags().GetBool("ids")

	var (
		counter tokenizer.TokenCounter
		enc     *tokenizer.Encoder
		allowed tokenizer.SpecialSet
	)
	switch cfg.Encoder.Strategy {
	case conf.StrategyApproximate:
		if printIDs {
			return fmt.Errorf("--ids needs the %s strategy", conf.StrategyExact)
		}
		counter = tokenizer.NewApproximateCounter()
	default:
		table, err := loader.LoadCL100K(rankSource(cfg), logger)
		if err != nil {
			return err
		}
		enc, err = tokenizer.NewCL100KEncoder(table)
		if err != nil {
			return err
		}
		allowed = allowedSpecials(cfg, table)
		counter = tokenizer.NewExactBpeCounter(enc, allowed)
	}

	budget := gate.New(cfg.Budget.TokenLimit)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if !isPiped(cmd.InOrStdin()) {
			return ErrNoInput
		}
		text, err := tokenizer.ReadText(cmd.InOrStdin())
		if err != nil {
			return err
		}
		var (
			n   int
			ids []int
		)
		if printIDs {
			ids, err = enc.Encode(text, allowed)
			n = len(ids)
		} else {
			n, err = counter.CountTokens(text)
		}
		if err != nil {
			return err
		}
		if err := budget.Check(n); err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		if printIDs {
			fmt.Fprintln(out, formatIDs(ids))
		}
		return nil
	}

	checker := gate.NewFileChecker(counter, budget, logger)
	results := make([]result, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, path := range args {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !printIDs {
				accepted, err := checker.ParseFile(path)
				if err != nil {
					return err
				}
				results[i] = result{name: accepted.Path, tokens: accepted.Tokens}
				return nil
			}

			accepted, ids, err := checker.ParseFileIDs(path)
			if err != nil {
				return err
			}
			results[i] = result{name: accepted.Path, tokens: accepted.Tokens, ids: ids}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(out, "%s %d\n", r.name, r.tokens)
		if printIDs {
			fmt.Fprintln(out, formatIDs(r.ids))
		}
	}
	return nil
}

func isPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	return !term.IsTerminal(int(f.Fd()))
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}
