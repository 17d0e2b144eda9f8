package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hourglass/pkg/config"
	"github.com/Sumatoshi-tech/hourglass/pkg/identity"
)

// rulesFile is the listing written by `rules --format yaml`; it loads back
// as a rule file.
type rulesFile struct {
	Rules []identity.Rule `yaml:"rules"`
}

// NewRulesCommand creates the rules subcommand.
func NewRulesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rules <file>",
		Short: "Print identity rules in canonical order",
		Long: `Load a YAML identity rule file and print the rules the way they are
applied: grouped by case-folded email, the email-only rule first, then the
name rules ordered by name. Duplicates collapse to the last one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := identity.LoadTable(args[0])
			if err != nil {
				return err
			}

			return writeRules(cmd.OutOrStdout(), tbl.Entries(), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", config.FormatText, "output format: text or yaml")

	return cmd
}

func writeRules(w io.Writer, rules []identity.Rule, format string) error {
	switch format {
	case config.FormatText:
		tbl := table.NewWriter()
		tbl.SetOutputMirror(w)
		tbl.SetStyle(table.StyleLight)
		tbl.AppendHeader(table.Row{"Match name", "Match email", "New name", "New email"})

		for _, rule := range rules {
			tbl.AppendRow(table.Row{rule.Match.Name, rule.Match.Email, rule.Replace.Name, rule.Replace.Email})
		}

		tbl.AppendFooter(table.Row{fmt.Sprintf("%d rules", len(rules))})
		tbl.Render()

		return nil
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(rulesFile{Rules: rules})
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
