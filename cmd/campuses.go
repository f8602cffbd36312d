package main

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var campusesCmd = &cobra.Command{
	Use:   "campuses",
	Short: "List the organization campuses used for free detection",
	Long:  "Prints every cataloged campus center: the embedded defaults plus any configured YAML catalog and shapefile.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return eris.Wrap(err, "load campus catalog")
		}

		orgs := catalog.Organizations()
		sort.Strings(orgs)

		for _, org := range orgs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", org)
			for _, c := range catalog.Campuses(org) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %9.4f, %9.4f  r=%.0fm\n",
					c.Name, c.Center.Lat, c.Center.Lng, c.RadiusMeters)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(campusesCmd)
}
