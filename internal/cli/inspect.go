package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sqltune/internal/tools"
)

func inspectCmd() *cobra.Command {
	var (
		dbPath string
		counts bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the catalog of a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := tools.Open(dbPath)
			if err != nil {
				return err
			}
			defer provider.Close()

			listed := provider.ListTables()
			if !listed.OK {
				return fmt.Errorf("%s", listed.Error)
			}
			if len(listed.Tables) == 0 {
				fmt.Println(styleMuted.Render("no tables"))
				return nil
			}

			for _, t := range listed.Tables {
				qualified := t.Schema + "." + t.Name
				name := t.Name
				if t.Schema != "" && t.Schema != "main" {
					name = qualified
				}

				header := styleTitle.Render(name) + styleMuted.Render("  "+t.Type)
				if counts {
					rc := provider.RowCount(cmd.Context(), qualified, cfg.TimeoutS)
					if rc.OK {
						header += styleMuted.Render(fmt.Sprintf("  %d rows", rc.Count))
					} else {
						header += styleError.Render("  " + rc.Error)
					}
				}
				fmt.Println(header)

				desc := provider.DescribeRelation(qualified, 0)
				if !desc.OK {
					fmt.Println(styleError.Render("  " + desc.Error))
					continue
				}
				for _, col := range desc.Columns {
					typ := strings.ToLower(col.Type)
					if typ == "" {
						typ = "any"
					}
					fmt.Printf("  %-24s %s\n", col.Name, styleMuted.Render(typ))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (required)")
	cmd.Flags().BoolVar(&counts, "counts", false, "include row counts (runs COUNT(*) per table)")
	cmd.MarkFlagRequired("db")

	return cmd
}
