package cli

import (
	"github.com/spf13/cobra"
)

func NewTrainersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trainers [list|view|delete]",
		Short: "Trainers manager",
		Long:  `View, list and delete registered trainers.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List trainers",
		Long:  `List registered trainers with their liveness.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListTrainers(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View trainer",
		Long:  `View trainer.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			t, err := fsdk.GetTrainer(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, t)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete trainer",
		Long:  `Remove a trainer from the registry.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.DeleteTrainer(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(deleteCmd)

	return cmd
}
