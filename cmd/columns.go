package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrlab/internal/analysis"
	"github.com/KaramelBytes/corrlab/internal/cli"
)

var (
	tblDelimiter  string
	tblSheetName  string
	tblSheetIndex int
)

var columnsCmd = &cobra.Command{
	Use:   "columns <file>",
	Short: "List the columns of a CSV/XLSX file and which are numeric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := readTable(args[0])
		if err != nil {
			return err
		}
		lines := []string{cli.SubtleStyle.Render(fmt.Sprintf("%d rows", ds.Rows))}
		for _, col := range ds.Columns {
			line := fmt.Sprintf("%s  %s", col.Name, cli.SubtleStyle.Render(string(col.Kind)))
			if col.Missing > 0 {
				line += cli.SubtleStyle.Render(fmt.Sprintf("  (%d missing)", col.Missing))
			}
			lines = append(lines, cli.Bullet(line))
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.Box(ds.Name, lines...))
		if ds.Truncated {
			fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("⚠ table truncated at max rows"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	addTableFlags(columnsCmd)
}

// addTableFlags registers the loader flags shared by columns and correlate.
func addTableFlags(c *cobra.Command) {
	c.Flags().StringVar(&tblDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (from extension if omitted)")
	c.Flags().StringVar(&tblSheetName, "sheet-name", "", "XLSX: sheet name to read")
	c.Flags().IntVar(&tblSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (first sheet if omitted)")
}

// readTable loads path with the effective config and the loader flags.
func readTable(path string) (*analysis.Dataset, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	opt, err := loadOptions(cfg)
	if err != nil {
		return nil, err
	}
	switch tblDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return nil, fmt.Errorf("unsupported --delimiter: %s", tblDelimiter)
	}
	opt.SheetName = strings.TrimSpace(tblSheetName)
	opt.SheetIndex = tblSheetIndex

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return analysis.Load(filepath.Base(path), f, opt)
}
