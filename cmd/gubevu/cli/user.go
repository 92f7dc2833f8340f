package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newUserCommand(rt *runtime) *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "user [name]",
		Short: "Show, set or clear the current user name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch {
			case forget:
				err = services.Users.Clear(ctx)
			case len(args) == 1:
				err = services.Users.SetCurrent(ctx, strings.TrimSpace(args[0]))
			}
			if err != nil {
				return err
			}
			name, err := services.Users.Current(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
			return err
		},
	}
	cmd.Flags().BoolVar(&forget, "clear", false, "forget the current user")
	return cmd
}
