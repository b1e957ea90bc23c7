package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/display"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/storage"
	"github.com/dyike/CortexCommittee/pkg/utils"
)

var Version = "0.1.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	e := &env{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "cortex-committee",
		Short: "CortexCommittee - AI investment committee",
		Long: `CortexCommittee convenes a committee of LLM analysts around a market topic.
Four core analysts argue in parallel, a macro strategist and a risk controller
weigh in, and a chief synthesizer turns the debate into a decision with minutes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			fmt.Fprintln(cmd.OutOrStdout(), welcomeBanner())
			return runAnalyze(cmd, e, &analyzeFlags{interactive: true})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "Directory holding config.json; all data paths default under it")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd(e))
	rootCmd.AddCommand(newHistoryCmd(e))
	rootCmd.AddCommand(newConfigCmd(e))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

type analyzeFlags struct {
	symbols       []string
	topic         string
	headline      string
	content       string
	horizon       string
	risk          string
	region        string
	maxIterations int
	timeout       time.Duration
	asJSON        bool
	interactive   bool
	save          bool
}

// request builds the committee input. Topic falls back to the headline.
func (f *analyzeFlags) request() *models.AnalysisRequest {
	topic := strings.TrimSpace(f.topic)
	if topic == "" {
		topic = strings.TrimSpace(f.headline)
	}
	return &models.AnalysisRequest{
		Symbols:       normalizeSymbols(f.symbols),
		Topic:         topic,
		Headline:      strings.TrimSpace(f.headline),
		Content:       f.content,
		TimeHorizon:   models.TimeHorizon(strings.ToLower(strings.TrimSpace(f.horizon))),
		RiskAppetite:  models.RiskAppetite(strings.ToLower(strings.TrimSpace(f.risk))),
		Region:        strings.TrimSpace(f.region),
		MaxIterations: f.maxIterations,
	}
}

func normalizeSymbols(raw []string) []string {
	var out []string
	for _, s := range raw {
		for _, part := range strings.Split(s, ",") {
			if p := strings.ToUpper(strings.TrimSpace(part)); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func newAnalyzeCmd(e *env) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [TOPIC]",
		Short: "Convene the committee on a topic",
		Long: `Run the investment committee on a market topic or news item.
Example: cortex-committee analyze "AI chip export ban" --symbols NVDA,AMD --horizon short`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			if len(args) == 1 {
				f.topic = args[0]
			}
			if f.topic == "" && f.headline == "" && !f.interactive {
				return fmt.Errorf("a topic is required (pass it as an argument, via --headline, or use --interactive)")
			}
			return runAnalyze(cmd, e, f)
		},
	}

	cmd.Flags().StringSliceVarP(&f.symbols, "symbols", "s", nil, "Ticker symbols, comma separated")
	cmd.Flags().StringVar(&f.headline, "headline", "", "News headline that triggered the meeting")
	cmd.Flags().StringVar(&f.content, "content", "", "News body or extra context")
	cmd.Flags().StringVar(&f.horizon, "horizon", string(models.HorizonMedium), "Time horizon: immediate, short, medium, long, extended")
	cmd.Flags().StringVar(&f.risk, "risk", string(models.RiskBalanced), "Risk appetite: conservative, balanced, aggressive")
	cmd.Flags().StringVar(&f.region, "region", "", "Market region, e.g. US or CN")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", 0, "Outer iteration budget (config max_iterations if 0)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Abort the run after this long")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Prompt for the request")
	cmd.Flags().BoolVar(&f.save, "save", false, "Write the minutes as markdown into results_dir")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, f *analyzeFlags) error {
	if f.interactive {
		if err := promptRequest(f); err != nil {
			return err
		}
	}

	rt, err := e.runtime(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req := f.request()
	if !f.asJSON {
		fmt.Fprintln(cmd.ErrOrStderr(), display.Title("convening committee on "+req.Topic))
	}
	res, err := rt.Analyze(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, display.Result(res))
	}

	if f.save {
		path, err := utils.WriteMarkdown(rt.Config().ResultsDir, utils.MinutesFileName(req.Topic, time.Now()), display.Markdown(res))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), display.Success("minutes saved to "+path))
	}
	return nil
}

func newHistoryCmd(e *env) *cobra.Command {
	var (
		limit  int
		cursor int64
	)
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded committee runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			store, err := openHistory(e)
			if err != nil {
				return err
			}
			runs, err := store.ListRuns(cmd.Context(), cursor, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.History(runs))
			if len(runs) == limit {
				fmt.Fprintf(cmd.ErrOrStderr(), "more: --cursor %d\n", runs[len(runs)-1].RowID)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to list")
	historyCmd.Flags().Int64Var(&cursor, "cursor", 0, "List runs older than this row id")

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			store, err := openHistory(e)
			if err != nil {
				return err
			}
			res, err := store.LoadResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Result(res))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored result as JSON")

	var olderThan time.Duration
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := openHistory(e)
			if err != nil {
				return err
			}
			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Success(fmt.Sprintf("pruned %d run(s)", n)))
			return nil
		},
	}
	pruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")

	historyCmd.AddCommand(showCmd, pruneCmd)
	return historyCmd
}

func openHistory(e *env) (*storage.Store, error) {
	store, err := e.history()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, storage.ErrNotConfigured
	}
	return store, nil
}

func newConfigCmd(e *env) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Show and edit config.json. A running committee picks up changes without restarting.",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			mgr, err := e.manager()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), mgr.Path())
			return writeJSON(cmd.OutOrStdout(), redact(mgr.Get()))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one configuration key, e.g. max_iterations 5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			mgr, err := e.manager()
			if err != nil {
				return err
			}
			if err := mgr.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Success(args[0]+" updated"))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and routing policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			mgr, err := e.manager()
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := config.LoadPolicy(cfg.PolicyFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.Success("configuration is valid"))
			return nil
		},
	})

	var initPolicy bool
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Show the effective routing policy, or write the defaults with --init",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer e.close()
			mgr, err := e.manager()
			if err != nil {
				return err
			}
			cfg := mgr.Get()
			if initPolicy {
				return writeDefaultPolicy(cmd.OutOrStdout(), mgr, cfg)
			}
			p, err := config.LoadPolicy(cfg.PolicyFile)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	policyCmd.Flags().BoolVar(&initPolicy, "init", false, "Write the default policy to policy_file (or project_dir/policy.yaml)")
	configCmd.AddCommand(policyCmd)

	return configCmd
}

func writeDefaultPolicy(out io.Writer, mgr *config.Manager, cfg config.Config) error {
	path := cfg.PolicyFile
	if path == "" {
		path = filepath.Join(cfg.ProjectDir, "policy.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.WritePolicy(path, config.DefaultPolicy()); err != nil {
		return err
	}
	if cfg.PolicyFile == "" {
		if err := mgr.Set("policy_file", path); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, display.Success("policy written to "+path))
	return nil
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CortexCommittee v%s\n", Version)
			fmt.Fprintln(cmd.OutOrStdout(), "Multi-agent investment committee on eino")
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redact(cfg config.Config) config.Config {
	mask := func(s *string) {
		if len(*s) > 4 {
			*s = (*s)[:4] + "****"
		} else if *s != "" {
			*s = "****"
		}
	}
	mask(&cfg.LLMAPIKey)
	mask(&cfg.DeepSeekAPIKey)
	mask(&cfg.SentimentAPIKey)
	mask(&cfg.LongportAppKey)
	mask(&cfg.LongportAppSecret)
	mask(&cfg.LongportAccessToken)
	return cfg
}
