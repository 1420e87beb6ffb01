package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/coursebridge-backend/internal/app"
	"github.com/yungbote/coursebridge-backend/internal/data/catalogfile"
	"github.com/yungbote/coursebridge-backend/internal/data/graph"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/indexer"
	"github.com/yungbote/coursebridge-backend/internal/platform/envutil"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "coursectl",
		Short:         "Operate the course prerequisite backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve <question>",
		Short: "Build the context bundle for a question and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	resolveCmd.Flags().StringSlice("completed", nil, "Completed courses, as ID or ID:term:year")
	resolveCmd.Flags().StringSlice("in-progress", nil, "Courses in progress, as ID or ID:term:year")
	resolveCmd.Flags().StringSlice("planned", nil, "Planned courses, as ID or ID:term:year")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Embed course documents and upsert them into the vector index",
		RunE:  runReindex,
	}
	reindexCmd.Flags().String("subject", "", "Only index one subject code, e.g. COMP")
	reindexCmd.Flags().Int("batch", 64, "Courses per embedding batch")

	syncCmd := &cobra.Command{
		Use:   "sync-graph",
		Short: "Mirror courses and prerequisite edges into Neo4j",
		RunE:  runSyncGraph,
	}

	loadCmd := &cobra.Command{
		Use:   "load <catalogue.yaml>",
		Short: "Upsert courses and prerequisite edges from a catalogue file",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoad,
	}

	rootCmd.AddCommand(resolveCmd, reindexCmd, syncCmd, loadCmd)
	return rootCmd
}

func bootstrap(ctx context.Context) (*app.App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewWithConfig(ctx, log, cfg)
}

func runResolve(cmd *cobra.Command, args []string) error {
	var completions []types.CompletionRecord
	for _, f := range completionFlags {
		values, _ := cmd.Flags().GetStringSlice(f.flag)
		recs, err := parseCompletions(f.status, values)
		if err != nil {
			return err
		}
		completions = append(completions, recs...)
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	bundle, err := a.Services.Engine.ResolveContext(ctx, args[0], completions)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), bundle)
}

var completionFlags = []struct {
	flag   string
	status types.CompletionStatus
}{
	{"completed", types.StatusCompleted},
	{"in-progress", types.StatusInProgress},
	{"planned", types.StatusPlanned},
}

func runReindex(cmd *cobra.Command, _ []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	batch, _ := cmd.Flags().GetInt("batch")
	if envutil.String("VECTOR_PROVIDER", "memory") == string(app.VectorProviderMemory) {
		return fmt.Errorf("reindex writes to a persistent index; set VECTOR_PROVIDER=qdrant")
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.Services.Indexer == nil {
		return fmt.Errorf("reindex needs OPENAI_API_KEY and a vector provider")
	}
	stats, err := a.Services.Indexer.Reindex(ctx, indexer.Options{
		Namespace: a.Cfg.Semantic.Namespace,
		BatchSize: batch,
		Subject:   strings.ToUpper(strings.TrimSpace(subject)),
	})
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}

func runSyncGraph(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if a.Clients.Neo4j == nil {
		return fmt.Errorf("sync-graph needs NEO4J_URI")
	}
	stats, err := graph.SyncCourseGraph(ctx, a.Clients.Neo4j, a.Log, a.Repos.Course, a.Repos.PrereqEdge)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}

func runLoad(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := catalogfile.Parse(f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	stats, err := catalogfile.Load(ctx, a.DB.DB(), a.Log, snap)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}

// parseCompletions accepts "COMP 250" or "COMP-250:fall:2025".
func parseCompletions(status types.CompletionStatus, values []string) ([]types.CompletionRecord, error) {
	out := make([]types.CompletionRecord, 0, len(values))
	for _, raw := range values {
		parts := strings.Split(strings.TrimSpace(raw), ":")
		id, ok := coursecode.Canonical(parts[0])
		if !ok {
			return nil, fmt.Errorf("bad course id %q", parts[0])
		}
		rec := types.CompletionRecord{CourseID: id, Status: status}
		switch len(parts) {
		case 1:
		case 3:
			rec.Term = types.ParseTerm(parts[1])
			if rec.Term == "" {
				return nil, fmt.Errorf("bad term %q in %q", parts[1], raw)
			}
			year, err := strconv.Atoi(parts[2])
			if err != nil {
				return nil, fmt.Errorf("bad year in %q: %w", raw, err)
			}
			rec.Year = year
		default:
			return nil, fmt.Errorf("expected ID or ID:term:year, got %q", raw)
		}
		out = append(out, rec)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
