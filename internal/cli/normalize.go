package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"rulemerge/internal/rule"
	"rulemerge/internal/source"
)

func newNormalizeCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: MsgNormalizeShort,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			rules := rule.NormalizeAll(source.SplitLines(body))

			w := cmd.OutOrStdout()
			if project {
				for _, e := range rule.ProjectAll(rules) {
					fmt.Fprintln(w, e)
				}
				return nil
			}
			for _, r := range rules {
				fmt.Fprintln(w, r.Key())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&project, "project", "p", false, MsgFlagProject)
	return cmd
}
