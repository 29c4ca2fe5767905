package cmd

import (
	"fmt"

	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var UserCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect stored OneDrive users",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored OneDrive users",
	RunE: func(cmd *cobra.Command, args []string) error {
		Init()
		defer Release()
		names, err := db.GetUsernames()
		if err != nil {
			return err
		}
		current := ""
		session, err := db.GetCurrentSession()
		if err == nil {
			current = session.Username
		} else if !errors.Is(err, errs.SessionNotFound) {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no onedrive user, start the server and authorize first")
			return nil
		}
		for _, name := range names {
			if name == current {
				fmt.Printf("* %s\n", name)
				continue
			}
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(UserCmd)
	UserCmd.AddCommand(userListCmd)
}
