package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venue-grouper/internal/clusterval"
	"github.com/sells-group/venue-grouper/internal/ingest"
	"github.com/sells-group/venue-grouper/internal/model"
	"github.com/sells-group/venue-grouper/internal/radius"
	"github.com/sells-group/venue-grouper/internal/session"
)

var (
	groupInputPath  string
	groupBudgetUSD  float64
	groupMode       string
	groupReportPath string
	groupNoPersist  bool
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Run one grouping session over contact locations",
	Long:  "Reads contact locations from a file or the store, clusters them by venue under the session budget, and persists clusters plus a session report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		var contacts []model.ContactLocation
		if groupInputPath != "" {
			contacts, err = ingest.ReadFile(groupInputPath)
			if err != nil {
				return eris.Wrap(err, "read contacts")
			}
		} else {
			contacts, err = st.ListContactLocations(ctx)
			if err != nil {
				return eris.Wrap(err, "list contacts")
			}
		}
		if len(contacts) == 0 {
			return eris.New("no contact locations to group (use --input or import first)")
		}

		client, err := newPlacesClient()
		if err != nil {
			return eris.Wrap(err, "create places client")
		}

		catalog, err := loadCatalog()
		if err != nil {
			return eris.Wrap(err, "load campus catalog")
		}

		sc, err := sessionConfig(groupBudgetUSD, groupMode)
		if err != nil {
			return err
		}

		rp := radius.New()
		orch, err := session.NewOrchestrator(session.Deps{
			Client:    client,
			Cache:     newResultCache(),
			Store:     st,
			Radius:    rp,
			Campuses:  catalog,
			Validator: clusterval.New(rp),
		}, sc)
		if err != nil {
			return eris.Wrap(err, "create orchestrator")
		}

		out, err := orch.Run(ctx, contacts)
		if err != nil {
			return eris.Wrap(err, "run session")
		}

		if !groupNoPersist {
			if err := st.SaveClusters(ctx, out.Report.SessionID, out.Clusters); err != nil {
				return eris.Wrap(err, "save clusters")
			}
			if err := st.SaveReport(ctx, out.Report); err != nil {
				return eris.Wrap(err, "save report")
			}
		}

		if groupReportPath != "" {
			if err := writeReportJSON(groupReportPath, out); err != nil {
				return err
			}
		}

		zap.L().Info("grouping complete",
			zap.String("session_id", out.Report.SessionID),
			zap.Int("contacts", len(contacts)),
			zap.Int("clusters", out.Report.ClusterCount),
			zap.Int("external_calls", out.Report.ExternalCalls),
			zap.Float64("spent_usd", out.Report.ActualCostUSD),
			zap.String("budget_status", out.Report.BudgetStatus),
		)
		return nil
	},
}

// writeReportJSON writes the session outcome to a JSON file for downstream
// billing/observability consumers.
func writeReportJSON(path string, out *session.Outcome) error {
	payload, err := json.MarshalIndent(struct {
		Report   model.SessionReport `json:"report"`
		Clusters []model.Cluster     `json:"clusters"`
	}{Report: out.Report, Clusters: out.Clusters}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return eris.Wrap(err, "write report")
	}
	return nil
}

func init() {
	groupCmd.Flags().StringVar(&groupInputPath, "input", "", "CSV or XLSX contact export (default: contacts from the store)")
	groupCmd.Flags().Float64Var(&groupBudgetUSD, "budget", -1, "session budget in USD (overrides config)")
	groupCmd.Flags().StringVar(&groupMode, "mode", "", "performance mode: budget, balanced, or premium")
	groupCmd.Flags().StringVar(&groupReportPath, "report", "", "write session report JSON to this path")
	groupCmd.Flags().BoolVar(&groupNoPersist, "no-persist", false, "skip saving clusters and report to the store")
	rootCmd.AddCommand(groupCmd)
}
