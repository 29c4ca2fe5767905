package cmd

import (
	"fmt"
	"runtime"

	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/spf13/cobra"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current version of tgdrive",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf(`Built At: %s
Go Version: %s
Git Commit: %s
Version: %s
`, conf.BuiltAt, runtime.Version(), conf.GitCommit, conf.Version)
	},
}

func init() {
	RootCmd.AddCommand(VersionCmd)
}
