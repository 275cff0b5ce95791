package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openclaw/clawtographer/code_mapper"
	"github.com/openclaw/clawtographer/constants/lipgloss"
	"github.com/openclaw/clawtographer/utils"
)

// mapCmd: clawtographer map [path]
var mapCmd = &cobra.Command{
	Use:   "map [path]",
	Short: "Analyze a codebase and generate its map.",
	Long: `The 'map' subcommand runs the full pipeline against a codebase: scan and
token-count files, pack them into budgeted chunks, analyze chunks concurrently
against the local model (reusing cached results from prior runs), and
synthesize one coherent codebase map. Chunks that fail keep their place in the
retry queue; a later run recomputes only those.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			return err
		}
		return handleMapCommand(rootDependencies, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(mapCmd)
}

func handleMapCommand(rootDependencies *RootDependencies, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer rootDependencies.Logger.Sync()

	codebasePath := rootDependencies.Cwd
	if len(args) > 0 {
		codebasePath = args[0]
	}

	cfg := rootDependencies.Config
	logger := rootDependencies.Logger

	ignorePatterns := cfg.IgnorePatterns
	if filePatterns, err := utils.GetIgnoreFilePatterns(codebasePath); err != nil {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Warning: %v", err)))
	} else {
		ignorePatterns = append(ignorePatterns, filePatterns...)
	}

	scanner := code_mapper.NewScanner(rootDependencies.TokenManagement, logger)

	dispatcher := code_mapper.NewDispatcher(
		rootDependencies.Backend,
		rootDependencies.Cache,
		cfg.MaxParallelAgents,
		cfg.BackendConfig.ChunkTimeout,
		logger,
	)

	// Progress bar only when stdout is a terminal; logs carry progress otherwise.
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	var progressbar *pterm.ProgressbarPrinter
	dispatcher.OnProgress = func(completed, total int) {
		if !interactive {
			return
		}
		if progressbar == nil {
			progressbar, _ = pterm.DefaultProgressbar.WithTotal(total).WithTitle("Analyzing chunks").Start()
		}
		progressbar.Increment()
		if completed == total {
			_, _ = progressbar.Stop()
			progressbar = nil
		}
	}

	synthesizer := code_mapper.NewSynthesizer(
		rootDependencies.Backend,
		rootDependencies.TokenManagement,
		cfg.SummaryCharCap,
		cfg.SynthesisTokenCeiling,
		cfg.BackendConfig.SynthesisTimeout,
		logger,
	)

	mapper := code_mapper.NewCodeMapper(
		scanner,
		rootDependencies.Cache,
		dispatcher,
		synthesizer,
		cfg.MaxTokensPerChunk,
		ignorePatterns,
		cfg.OutputDir,
		logger,
	)

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("Mapping %s", codebasePath)))

	report, err := mapper.Run(ctx, codebasePath)
	if err != nil {
		if errors.Is(err, code_mapper.ErrAllChunksFailed) {
			fmt.Println(lipgloss.Red.Render("All chunks failed - cannot create map."))
			fmt.Println(lipgloss.Yellow.Render("Check the cache directory for details; nothing was evicted."))
			return err
		}
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return err
	}

	fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Map saved to: %s", report.OutputPath)))

	summary := fmt.Sprintf("Files: %d (%d tokens, %d skipped) - Chunks: %d (%d cached)",
		report.Scan.Files, report.Scan.TotalTokens, report.Scan.Skipped,
		report.Chunks, report.FromCache)
	if !report.Synthesized {
		summary += " - concatenated, not synthesized"
	}
	fmt.Println(lipgloss.BoxStyle.Render(summary))

	if len(report.Failed) > 0 {
		fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("%d chunks kept for retry - re-run to complete them", len(report.Failed))))
	}

	rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Backend.Model())

	return nil
}
