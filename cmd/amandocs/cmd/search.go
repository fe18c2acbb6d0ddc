package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amandocs/internal/output"
	"github.com/Aman-CERP/amandocs/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	scope      string
	limit      int
	verify     bool
	vector     bool
	refine     []string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Search the index. Files containing the query as a phrase come first,
then files sharing its character n-grams, then (with --vector) files
whose leading text is semantically close.

--verify keeps only files that literally contain the query, which
removes n-gram false positives at some extra cost.

--refine runs further queries that only keep files from the previous
result, like narrowing a search step by step.`,
		Example: `  amandocs search 秘密保持契約
  amandocs search "service agreement" --scope /contracts/2024 --limit 20
  amandocs search 契約 --refine 2024 --refine 更新
  amandocs search マニュアル --verify --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "", "Only return files under this folder")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Only return files containing the query literally")
	cmd.Flags().BoolVar(&opts.vector, "vector", false, "Add semantically similar files")
	cmd.Flags().StringArrayVar(&opts.refine, "refine", nil, "Narrow the result with another query (repeatable)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	cfg := svc.Config()
	base := search.Query{
		Scope:     opts.scope,
		Limit:     opts.limit,
		Verify:    opts.verify || cfg.Search.Verify,
		UseVector: opts.vector || cfg.Search.UseVector,
	}

	start := time.Now()
	session := svc.NewSession()
	queries := append([]string{query}, opts.refine...)

	var res *search.Result
	for _, q := range queries {
		step := base
		step.Text = q
		res, err = session.Search(ctx, step)
		if err != nil {
			return err
		}
		slog.Info("search_step",
			slog.String("query", q),
			slog.Int("results", len(res.Hits)),
			slog.Bool("refined", res.Refined))
	}
	slog.Info("search_complete",
		slog.Int("steps", len(queries)),
		slog.Int("results", len(res.Hits)),
		slog.Duration("duration", time.Since(start)))

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOutput {
		return out.JSON(struct {
			Queries []string `json:"queries"`
			*search.Result
		}{Queries: queries, Result: res})
	}
	out.Hits(strings.Join(queries, " → "), res)
	return nil
}
