package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-eyereport/internal/domain"
)

func (a *app) layoutsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "List the exam types with a report layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := newLayoutStore(a.cfg)
			if err != nil {
				return err
			}
			types, err := store.ExamTypes(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range types {
				marker := " "
				if t == a.cfg.DefaultExamType {
					marker = "*"
				}
				fmt.Fprintf(a.stdout, "%s %s\n", marker, t)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show EXAM_TYPE",
		Short: "Print the layout template of an exam type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newLayoutStore(a.cfg)
			if err != nil {
				return err
			}
			layout, err := store.GetLayout(cmd.Context(), domain.ExamType(args[0]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, layout)
			return err
		},
	})
	return cmd
}
