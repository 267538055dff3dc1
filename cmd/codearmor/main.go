// cmd/codearmor/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/julianshen/codearmor/internal/analysis"
	"github.com/julianshen/codearmor/internal/classifier"
	"github.com/julianshen/codearmor/internal/config"
	"github.com/julianshen/codearmor/internal/githost"
	"github.com/julianshen/codearmor/internal/history"
	"github.com/julianshen/codearmor/internal/output"
	"github.com/julianshen/codearmor/internal/provider"
	"github.com/julianshen/codearmor/internal/ratelimit"
	"github.com/julianshen/codearmor/internal/remediation"
	"github.com/julianshen/codearmor/internal/validate"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath  string
	modelFlag   string
	outputFlag  string
	timeoutFlag time.Duration
	fileFlag    string
	noHistory   bool
)

func versionString() string {
	return fmt.Sprintf("codearmor %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "codearmor",
		Short:         "Pull request security analysis",
		Long:          "codearmor — risk and regression analysis for pull requests and code snippets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "override classifier model name")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "markdown", "output format: json, markdown")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 5*time.Minute, "analysis timeout")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "skip recording the scan in local history")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(versionString())
		},
	}

	rootCmd.AddCommand(prCmd(), repoCmd(), snippetCmd(), fixCmd(), historyCmd(), versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		os.Exit(1)
	}
}

func prCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pr <owner>/<repo> <number>",
		Short: "Analyze a pull request",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			owner, repo, err := validate.ParseRepo(args[0])
			if err != nil {
				return err
			}
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid pull request number %q", args[1])
			}
			if err := validate.PRNumber(number); err != nil {
				return err
			}
			return runPR(owner, repo, number)
		},
	}
}

func repoCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "repo <owner>/<repo>",
		Short: "Analyze a repository snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			owner, repo, err := validate.ParseRepo(args[0])
			if err != nil {
				return err
			}
			return runRepo(owner, repo, branch)
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "main", "branch to analyze")
	return cmd
}

func fixCmd() *cobra.Command {
	var branch, findingsPath string
	cmd := &cobra.Command{
		Use:   "fix <owner>/<repo> --findings report.json",
		Short: "Open a pull request fixing definite findings from a prior scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			owner, repo, err := validate.ParseRepo(args[0])
			if err != nil {
				return err
			}
			return runFix(owner, repo, branch, findingsPath)
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "main", "base branch for the fix pull request")
	cmd.Flags().StringVar(&findingsPath, "findings", "", "path to a JSON report from a prior scan")
	cmd.MarkFlagRequired("findings")
	return cmd
}

func snippetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snippet [--file path]",
		Short: "Analyze a code snippet from a file or stdin",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			code, err := readSnippet()
			if err != nil {
				return err
			}
			return runSnippet(code)
		},
	}
	cmd.Flags().StringVar(&fileFlag, "file", "", "read snippet from file instead of stdin")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	var repoFlag string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scans",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if repoFlag != "" {
				owner, repo, err := validate.ParseRepo(repoFlag)
				if err != nil {
					return err
				}
				regressions, err := store.RegressionsForRepo(owner, repo, limit)
				if err != nil {
					return fmt.Errorf("reading regression history: %w", err)
				}
				if len(regressions) == 0 {
					fmt.Printf("No regressions recorded for %s/%s.\n", owner, repo)
					return nil
				}
				for _, r := range regressions {
					fmt.Printf("%s  PR #%-5d reintroduced fix from PR #%-5d  %-6s %s\n",
						r.CreatedAt.UTC().Format("2006-01-02 15:04"),
						r.PRNumber, r.OriginalFixPR, r.Severity, r.FileAffected)
				}
				return nil
			}

			scans, err := store.RecentScans(limit)
			if err != nil {
				return fmt.Errorf("reading scan history: %w", err)
			}
			if len(scans) == 0 {
				fmt.Println("No scans recorded yet.")
				return nil
			}
			for _, s := range scans {
				fmt.Printf("%s  %-7s %-40s score %3d  findings %d  regressions %d\n",
					s.CreatedAt.UTC().Format("2006-01-02 15:04"),
					s.ScanType, s.Target, s.SecurityScore, s.FindingsCount, s.RegressionsCount)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of scans to show")
	cmd.Flags().StringVar(&repoFlag, "repo", "", "show recorded regressions for one repository (owner/repo)")
	return cmd
}

func runPR(owner, repo string, number int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limiter := ratelimit.New()
	stopSweeper := limiter.StartSweeper(time.Minute)
	defer stopSweeper()

	target := fmt.Sprintf("%s/%s", owner, repo)
	if res := limiter.Allow(ratelimit.OpPR, target); !res.Allowed {
		return &ratelimit.Error{Operation: ratelimit.OpPR, ResetAt: res.ResetAt}
	}

	host, err := githost.NewClient(githost.Options{
		Token:   cfg.GitHubToken(),
		Timeout: time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	cls, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(host, cls, analysis.AnalyzerConfig{
		Regression: analysis.RegressionConfig{
			HistoryLimit:   cfg.Analysis.HistoryLimit,
			MaxSecurityPRs: cfg.Analysis.MaxSecurityPRs,
			Concurrency:    cfg.Analysis.Concurrency,
		},
	})

	matcher, err := projectMatcher()
	if err != nil {
		return err
	}
	analyzer.UseMatcher(matcher)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	start := time.Now()
	result, err := analyzer.AnalyzePR(ctx, owner, repo, number)
	if err != nil {
		return err
	}

	report := &output.Report{
		Target:      fmt.Sprintf("%s#%d", target, number),
		ScanType:    "pr",
		RiskDelta:   &result.RiskDelta,
		Regressions: result.Regressions,
		Findings:    result.Findings,
		Assumptions: result.Assumptions,
		Score:       result.Score,
		Truncated:   result.Truncated,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	recordScan(cfg, report, owner, repo, number)

	return printReport(report)
}

func runRepo(owner, repo, branch string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limiter := ratelimit.New()
	stopSweeper := limiter.StartSweeper(time.Minute)
	defer stopSweeper()

	target := fmt.Sprintf("%s/%s", owner, repo)
	if res := limiter.Allow(ratelimit.OpRepo, target); !res.Allowed {
		return &ratelimit.Error{Operation: ratelimit.OpRepo, ResetAt: res.ResetAt}
	}

	host, err := githost.NewClient(githost.Options{
		Token:   cfg.GitHubToken(),
		Timeout: time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	cls, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	matcher, err := projectMatcher()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	start := time.Now()
	files, err := host.RepoFiles(ctx, owner, repo, branch, matcher.SecurityRelevant)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no security-relevant files found in %s@%s", target, branch)
	}

	classification, err := cls.ClassifyRepo(ctx, files)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}

	report := &output.Report{
		Target:      fmt.Sprintf("%s@%s", target, branch),
		ScanType:    "repo",
		Files:       paths,
		Findings:    classification.Findings,
		Assumptions: classification.Assumptions,
		Score:       analysis.Score(classification.Findings),
		Truncated:   classification.Truncated,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	recordScan(cfg, report, owner, repo, 0)

	return printReport(report)
}

func runFix(owner, repo, base, findingsPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limiter := ratelimit.New()
	stopSweeper := limiter.StartSweeper(time.Minute)
	defer stopSweeper()

	target := fmt.Sprintf("%s/%s", owner, repo)
	if res := limiter.Allow(ratelimit.OpFix, target); !res.Allowed {
		return &ratelimit.Error{Operation: ratelimit.OpFix, ResetAt: res.ResetAt}
	}

	findings, err := loadFindings(findingsPath)
	if err != nil {
		return err
	}

	token := cfg.GitHubToken()
	if token == "" {
		return errors.New("a GitHub token is required to open fix pull requests")
	}
	host, err := githost.NewClient(githost.Options{
		Token:   token,
		Timeout: time.Duration(cfg.GitHub.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	client, err := newProviderClient(cfg)
	if err != nil {
		return err
	}
	fixer := remediation.NewFixer(host, client)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	result, err := fixer.Apply(ctx, owner, repo, base, findings)
	if errors.Is(err, remediation.ErrNoDefiniteFindings) {
		fmt.Println("No definite vulnerabilities to fix.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Opened %s\n", result.PullRequestURL)
	fmt.Printf("Branch %s fixes %d vulnerabilities across %d files.\n",
		result.Branch, result.FindingCount, len(result.FixedFiles))
	return nil
}

func runSnippet(code string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limiter := ratelimit.New()
	stopSweeper := limiter.StartSweeper(time.Minute)
	defer stopSweeper()

	if res := limiter.Allow(ratelimit.OpSnippet, "local"); !res.Allowed {
		return &ratelimit.Error{Operation: ratelimit.OpSnippet, ResetAt: res.ResetAt}
	}

	cls, err := newClassifier(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	start := time.Now()
	classification, err := cls.ClassifySnippet(ctx, validate.SanitizeSnippet(code))
	if err != nil {
		return err
	}

	report := &output.Report{
		Target:      "snippet",
		ScanType:    "snippet",
		Findings:    classification.Findings,
		Assumptions: classification.Assumptions,
		Score:       analysis.Score(classification.Findings),
		Truncated:   classification.Truncated,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	recordScan(cfg, report, "", "", 0)

	return printReport(report)
}

// recordScan persists the scan in local history. Persistence failures never
// fail the analysis; the report has already been produced.
func recordScan(cfg *config.Config, report *output.Report, owner, repo string, number int) {
	if noHistory || !cfg.History.Enabled {
		return
	}
	store, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: scan history unavailable:", err)
		return
	}
	defer store.Close()

	var definite, potential int
	for _, f := range report.Findings {
		if f.Certainty == analysis.CertaintyDefinite {
			definite++
		} else {
			potential++
		}
	}

	rec := history.ScanRecord{
		ScanType:         report.ScanType,
		Target:           report.Target,
		Owner:            owner,
		Repo:             repo,
		PRNumber:         number,
		SecurityScore:    report.Score.Score,
		FindingsCount:    len(report.Findings),
		DefiniteCount:    definite,
		PotentialCount:   potential,
		RegressionsCount: len(report.Regressions),
	}
	if report.RiskDelta != nil {
		rec.RiskLevel = string(report.RiskDelta.Level)
	} else if report.ScanType == "repo" {
		rec.RiskLevel = string(riskLevelFromScore(report.Score.Score))
	}
	if _, err := store.SaveScan(rec); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: recording scan failed:", err)
		return
	}

	for _, r := range report.Regressions {
		_, err := store.SaveRegression(history.RegressionRecord{
			Owner:         owner,
			Repo:          repo,
			PRNumber:      number,
			OriginalFixPR: r.OriginalFixPR,
			FileAffected:  r.ReintroducedIn,
			Severity:      string(r.Severity),
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: recording regression failed:", err)
			return
		}
	}
}

// riskLevelFromScore maps an absolute security score to the risk level stored
// for repository scans, where no per-change risk delta exists.
func riskLevelFromScore(score int) analysis.RiskLevel {
	switch {
	case score >= 80:
		return analysis.RiskLow
	case score >= 50:
		return analysis.RiskMedium
	default:
		return analysis.RiskHigh
	}
}

// projectMatcher builds the standard matcher with project rules from the
// working directory applied, when a .codearmor.yaml is present.
func projectMatcher() (*analysis.Matcher, error) {
	m := analysis.NewMatcher()
	cwd, err := os.Getwd()
	if err != nil {
		return m, nil
	}
	pc, err := analysis.LoadProjectConfig(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", analysis.ProjectConfigName, err)
	}
	if pc != nil {
		pc.Apply(m)
	}
	return m, nil
}

// loadFindings reads findings from a saved scan report. Both a full report
// and a bare findings array are accepted.
func loadFindings(path string) ([]analysis.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading findings file: %w", err)
	}

	var report struct {
		Findings []analysis.Finding `json:"findings"`
	}
	if err := json.Unmarshal(data, &report); err == nil && report.Findings != nil {
		return report.Findings, nil
	}

	var findings []analysis.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("parsing findings file: %w", err)
	}
	return findings, nil
}

func newProviderClient(cfg *config.Config) (*provider.Client, error) {
	key, err := cfg.ClassifierKey()
	if err != nil {
		return nil, err
	}
	return provider.NewClient(
		cfg.Classifier.BaseURL,
		key,
		cfg.Classifier.Model,
		time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second,
	), nil
}

func newClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	client, err := newProviderClient(cfg)
	if err != nil {
		return nil, err
	}
	return classifier.New(client), nil
}

func printReport(report *output.Report) error {
	out, err := output.ForFormat(outputFlag).Format(report)
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

// readSnippet resolves snippet input from --file or stdin.
func readSnippet() (string, error) {
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", fmt.Errorf("reading snippet file: %w", err)
		}
		return string(data), nil
	}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
		return "", errors.New("no snippet provided: pass --file or pipe code on stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no snippet provided: pass --file or pipe code on stdin")
	}
	return string(data), nil
}

// loadConfig resolves the config path, loads the config, and applies flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfgPath := configPath
	if cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgPath = filepath.Join(home, ".config", "codearmor", "config.toml")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if modelFlag != "" {
		cfg.Classifier.Model = modelFlag
	}
	return cfg, nil
}

func openHistory(cfg *config.Config) (*history.Store, error) {
	dbPath := cfg.History.Path
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir := filepath.Join(home, ".config", "codearmor")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}
		dbPath = filepath.Join(dir, "history.db")
	}
	return history.NewStore(dbPath)
}

// userMessage keeps upstream failure detail out of user-facing output.
func userMessage(err error) string {
	var rlErr *ratelimit.Error
	if errors.As(err, &rlErr) {
		return rlErr.Error()
	}
	if errors.Is(err, analysis.ErrUpstream) {
		return "an upstream service is unavailable, try again later"
	}
	return err.Error()
}
