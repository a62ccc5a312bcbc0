package cmd

import (
	"os"
	"sort"

	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/segmaker"
	"github.com/OpenTraceLab/OpenTraceSegbits/pkg/tagfile"
	"github.com/spf13/cobra"
)

var (
	// Flags for zerogroup command
	zgSite     string
	zgPrefix   string
	zgValues   []string
	zgZero     string
	zgObserved string
)

var zerogroupCmd = &cobra.Command{
	Use:   "zerogroup",
	Short: "Emit tag lines for one observation of an enumerated attribute",
	Long: `Encode one observed value of a multi-valued site attribute as tag
observation lines, for design generators written in other languages.

The zero value is the one whose encoding clears every bit. When it is
observed, every value is tagged and only the zero member is true. Otherwise
the observed value is tagged true and the zero member false; other members
are left untagged.

Examples:
  segmaker zerogroup --site RAMB18_X0Y40 --prefix READ_WIDTH_A_ \
    --values 1,2,4,9,18 --zero 1 --observed 18 >> tags.txt`,
	RunE: runZeroGroup,
}

func init() {
	rootCmd.AddCommand(zerogroupCmd)

	zerogroupCmd.Flags().StringVar(&zgSite, "site", "", "site the attribute belongs to")
	zerogroupCmd.Flags().StringVar(&zgPrefix, "prefix", "", "tag name prefix (tag = prefix + value)")
	zerogroupCmd.Flags().StringSliceVar(&zgValues, "values", nil, "legal values (comma-separated)")
	zerogroupCmd.Flags().StringVar(&zgZero, "zero", "", "value encoded with all bits clear")
	zerogroupCmd.Flags().StringVar(&zgObserved, "observed", "", "value used by the design")

	zerogroupCmd.MarkFlagRequired("site")
	zerogroupCmd.MarkFlagRequired("values")
	zerogroupCmd.MarkFlagRequired("observed")
}

func runZeroGroup(cmd *cobra.Command, args []string) error {
	group, err := segmaker.ZeroGroup(zgValues, zgZero, zgObserved)
	if err != nil {
		return err
	}

	values := make([]string, 0, len(group))
	for v := range group {
		values = append(values, v)
	}
	sort.Strings(values)

	obs := make([]segmaker.Observation, 0, len(values))
	for _, v := range values {
		obs = append(obs, segmaker.Observation{
			Scope: segmaker.ScopeSite,
			Key:   zgSite,
			Name:  zgPrefix + v,
			Value: group[v],
		})
	}
	return tagfile.Write(os.Stdout, obs)
}
