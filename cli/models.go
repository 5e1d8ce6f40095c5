package cli

import (
	"github.com/spf13/cobra"
)

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [list|view|deployed|deploy]",
		Short: "Model versions manager",
		Long:  `View, list and deploy aggregated model versions.`,
	}

	listCmd := &cobra.Command{
		Use:   "list <sessionID>",
		Short: "List model versions",
		Long:  `List the aggregated model versions of a session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListModelVersions(args[0], defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <sessionID> <modelID>",
		Short: "View model version",
		Long:  `View model version.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			m, err := fsdk.GetModelVersion(args[0], args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}

	deployedCmd := &cobra.Command{
		Use:   "deployed <sessionID>",
		Short: "View deployed model",
		Long:  `View the currently deployed model version of a session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			m, err := fsdk.GetDeployedModel(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}

	deployCmd := &cobra.Command{
		Use:   "deploy <sessionID> <modelID>",
		Short: "Deploy model version",
		Long:  `Mark a model version as the deployed one for its session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.DeployModelVersion(args[0], args[1]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(deployedCmd)
	cmd.AddCommand(deployCmd)

	return cmd
}
