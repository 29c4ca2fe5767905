package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	taskStatuses string
	taskKeyword  string
	taskPage     int
	taskPageSize int
)

var TaskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect stored transfer tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tasks, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := parseStatuses(taskStatuses)
		if err != nil {
			return err
		}
		Init()
		defer Release()
		tasks, total, err := db.ListTasks(statuses, taskKeyword, taskPage, taskPageSize)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tSIZE\tPATH\tERROR")
		for i := range tasks {
			t := &tasks[i]
			fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
				t.ID, t.CmdType, t.Status, t.Progress(), humanize.Bytes(uint64(t.TotalLength)),
				strings.TrimSuffix(t.RootPath, "/")+"/"+t.Filename, t.Error)
		}
		fmt.Fprintf(w, "%d of %d tasks\n", len(tasks), total)
		return w.Flush()
	},
}

func parseStatuses(s string) ([]model.TaskStatus, error) {
	var statuses []model.TaskStatus
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		status, err := model.ParseTaskStatus(name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func init() {
	RootCmd.AddCommand(TaskCmd)
	TaskCmd.AddCommand(taskListCmd)
	taskListCmd.Flags().StringVar(&taskStatuses, "status", "", "comma separated statuses to show, e.g. waiting,started")
	taskListCmd.Flags().StringVar(&taskKeyword, "keyword", "", "only tasks whose file name contains keyword")
	taskListCmd.Flags().IntVar(&taskPage, "page", 1, "page number")
	taskListCmd.Flags().IntVar(&taskPageSize, "page-size", 20, "tasks per page")
}
