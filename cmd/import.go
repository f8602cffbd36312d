package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venue-grouper/internal/ingest"
)

var importInputPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contact locations from a CSV or XLSX export into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		contacts, err := ingest.ReadFile(importInputPath)
		if err != nil {
			return eris.Wrap(err, "read contacts")
		}
		if len(contacts) == 0 {
			return eris.New("no contact rows found in input")
		}

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		added, err := st.AddContactLocations(ctx, contacts)
		if err != nil {
			return eris.Wrap(err, "add contacts")
		}

		zap.L().Info("import complete",
			zap.Int("added", added),
			zap.String("input", importInputPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInputPath, "input", "", "path to CSV or XLSX file (required)")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}
