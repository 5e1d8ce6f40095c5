package cli

import (
	"strconv"
	"time"

	"github.com/absmach/flock/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	DefTLSVerification        = false
	DefCoordinatorURL         = "http://localhost:7070"
	defOffset          uint64 = 0
	defLimit           uint64 = 10

	rounds              uint64
	epochs              uint64
	batchSize           uint64
	learningRate        float64
	fractionFit         float64
	fractionEvaluate    float64
	minFitClients       uint64
	minEvaluateClients  uint64
	minAvailableClients uint64
	roundTimeout        uint64
	maxFailedRounds     uint64
	acceptFailures      bool
	startAt             string
)

var fsdk sdk.SDK

func SetFlockSDK(s sdk.SDK) {
	fsdk = s
}

func sessionConfigFromFlags() sdk.SessionConfig {
	return sdk.SessionConfig{
		Rounds:              rounds,
		Epochs:              epochs,
		BatchSize:           batchSize,
		LearningRate:        learningRate,
		FractionFit:         fractionFit,
		FractionEvaluate:    fractionEvaluate,
		MinFitClients:       minFitClients,
		MinEvaluateClients:  minEvaluateClients,
		MinAvailableClients: minAvailableClients,
		RoundTimeoutSecs:    roundTimeout,
		MaxFailedRounds:     maxFailedRounds,
		AcceptFailures:      acceptFailures,
	}
}

func registerConfigFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&rounds, "rounds", 0, "Number of federated rounds (0 for server default)")
	cmd.Flags().Uint64Var(&epochs, "epochs", 0, "Local epochs per round (0 for server default)")
	cmd.Flags().Uint64Var(&batchSize, "batch-size", 0, "Local batch size (0 for server default)")
	cmd.Flags().Float64Var(&learningRate, "learning-rate", 0, "Local learning rate (0 for server default)")
	cmd.Flags().Float64Var(&fractionFit, "fraction-fit", 0, "Fraction of alive trainers selected for fit")
	cmd.Flags().Float64Var(&fractionEvaluate, "fraction-evaluate", 0, "Fraction of alive trainers selected for evaluate")
	cmd.Flags().Uint64Var(&minFitClients, "min-fit-clients", 0, "Minimum trainers per fit phase")
	cmd.Flags().Uint64Var(&minEvaluateClients, "min-evaluate-clients", 0, "Minimum trainers per evaluate phase")
	cmd.Flags().Uint64Var(&minAvailableClients, "min-available-clients", 0, "Minimum alive trainers before a round starts")
	cmd.Flags().Uint64Var(&roundTimeout, "round-timeout", 0, "Per-phase timeout in seconds")
	cmd.Flags().Uint64Var(&maxFailedRounds, "max-failed-rounds", 0, "Consecutive failed rounds before the session fails")
	cmd.Flags().BoolVar(&acceptFailures, "accept-failures", false, "Aggregate partial results when some trainers fail")
	cmd.Flags().StringVar(&startAt, "start-at", "", "Scheduled start time (RFC3339)")
}

func NewSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions [create|view|list|update|delete|start|cancel|rounds|round]",
		Short: "Sessions manager",
		Long:  `Create, view, list, update, delete, start and cancel federated learning sessions.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create session",
		Long: `Create a federated learning session with training hyperparameters.

Examples:
  # Create a session with server defaults
  flock-cli sessions create mnist

  # Create a 20 round session with 3 local epochs
  flock-cli sessions create mnist --rounds=20 --epochs=3 --learning-rate=0.02`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s := sdk.Session{
				Name:   args[0],
				Config: sessionConfigFromFlags(),
			}
			if startAt != "" {
				t, err := time.Parse(time.RFC3339, startAt)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				s.StartAt = t
			}

			s, err := fsdk.CreateSession(s)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}
	registerConfigFlags(createCmd)

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View session",
		Long:  `View session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := fsdk.GetSession(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Long:  `List sessions.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListSessions(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Update session",
		Long:  `Rename a pending session and adjust its hyperparameters.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := fsdk.UpdateSession(sdk.Session{
				ID:     args[0],
				Name:   args[1],
				Config: sessionConfigFromFlags(),
			})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}
	registerConfigFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete session",
		Long:  `Delete session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.DeleteSession(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start session",
		Long:  `Start session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.StartSession(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel session",
		Long:  `Cancel session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := fsdk.CancelSession(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	roundsCmd := &cobra.Command{
		Use:   "rounds <sessionID>",
		Short: "List session rounds",
		Long:  `List the recorded rounds of a session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := fsdk.ListRounds(args[0], defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	roundCmd := &cobra.Command{
		Use:   "round <sessionID> <number>",
		Short: "View session round",
		Long:  `View one recorded round of a session.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			number, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			r, err := fsdk.GetRound(args[0], number)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(updateCmd)
	cmd.AddCommand(deleteCmd)
	cmd.AddCommand(startCmd)
	cmd.AddCommand(cancelCmd)
	cmd.AddCommand(roundsCmd)
	cmd.AddCommand(roundCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
