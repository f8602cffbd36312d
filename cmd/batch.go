package main

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/venue-grouper/internal/cache"
	"github.com/sells-group/venue-grouper/internal/campus"
	"github.com/sells-group/venue-grouper/internal/clusterval"
	"github.com/sells-group/venue-grouper/internal/ingest"
	"github.com/sells-group/venue-grouper/internal/radius"
	"github.com/sells-group/venue-grouper/internal/session"
	"github.com/sells-group/venue-grouper/internal/store"
)

var (
	batchBudgetUSD float64
	batchMode      string
	batchReportDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Run independent grouping sessions over multiple contact exports",
	Long:  "Each input file becomes one session with its own budget, call counter, and pacing. Sessions run concurrently and share the result cache, so overlapping areas are paid for once.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		catalog, err := loadCatalog()
		if err != nil {
			return eris.Wrap(err, "load campus catalog")
		}

		sc, err := sessionConfig(batchBudgetUSD, batchMode)
		if err != nil {
			return err
		}

		// One in-memory cache across all sessions. Keys carry geometry and
		// type only, so cross-session sharing is safe.
		shared := newResultCache()
		rp := radius.New()
		validator := clusterval.New(rp)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentSessions)

		var mu sync.Mutex
		var failed []string

		for _, path := range args {
			g.Go(func() error {
				if err := runBatchSession(gctx, path, st, shared, rp, validator, catalog, sc); err != nil {
					zap.L().Error("batch session failed",
						zap.String("input", path),
						zap.Error(err),
					)
					mu.Lock()
					failed = append(failed, path)
					mu.Unlock()
				}
				return nil // one bad file must not cancel sibling sessions
			})
		}
		_ = g.Wait()

		if len(failed) > 0 {
			return eris.Errorf("batch finished with %d failed session(s): %s",
				len(failed), strings.Join(failed, ", "))
		}
		zap.L().Info("batch complete", zap.Int("sessions", len(args)))
		return nil
	},
}

// runBatchSession runs one session over a single input file. The places
// client is created here so its call counter and pacing stay per-session.
func runBatchSession(
	ctx context.Context,
	path string,
	st store.Store,
	shared *cache.ResultCache,
	rp *radius.Policy,
	validator *clusterval.Validator,
	catalog *campus.Catalog,
	sc session.Config,
) error {
	contacts, err := ingest.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read contacts")
	}
	if len(contacts) == 0 {
		return eris.New("no contact rows found in input")
	}

	client, err := newPlacesClient()
	if err != nil {
		return eris.Wrap(err, "create places client")
	}

	orch, err := session.NewOrchestrator(session.Deps{
		Client:    client,
		Cache:     shared,
		Store:     st,
		Radius:    rp,
		Campuses:  catalog,
		Validator: validator,
	}, sc)
	if err != nil {
		return eris.Wrap(err, "create orchestrator")
	}

	out, err := orch.Run(ctx, contacts)
	if err != nil {
		return eris.Wrap(err, "run session")
	}

	if err := st.SaveClusters(ctx, out.Report.SessionID, out.Clusters); err != nil {
		return eris.Wrap(err, "save clusters")
	}
	if err := st.SaveReport(ctx, out.Report); err != nil {
		return eris.Wrap(err, "save report")
	}

	if batchReportDir != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := writeReportJSON(filepath.Join(batchReportDir, base+".json"), out); err != nil {
			return err
		}
	}

	zap.L().Info("batch session complete",
		zap.String("input", path),
		zap.String("session_id", out.Report.SessionID),
		zap.Int("clusters", out.Report.ClusterCount),
		zap.Float64("spent_usd", out.Report.ActualCostUSD),
	)
	return nil
}

func init() {
	batchCmd.Flags().Float64Var(&batchBudgetUSD, "budget", -1, "per-session budget in USD (overrides config)")
	batchCmd.Flags().StringVar(&batchMode, "mode", "", "performance mode: budget, balanced, or premium")
	batchCmd.Flags().StringVar(&batchReportDir, "report-dir", "", "write one session report JSON per input file into this directory")
	rootCmd.AddCommand(batchCmd)
}
