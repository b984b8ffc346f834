package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/integration/backend"
	"github.com/spf13/cobra"
)

var (
	flagHealthWait    bool
	flagInteractionID string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if flagHealthWait {
			fmt.Fprintln(out, dimStyle.Render("Waiting for "+deps.Health.BaseURL()+" ..."))
			if err := backend.WaitForReady(ctx, deps.Health, &deps.Config.BackendCfg.Readiness); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render(deps.Health.BaseURL()+": ok"))
			return nil
		}

		resp, err := deps.Health.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render(deps.Health.BaseURL()+": "+resp.Status))
		return nil
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <1-5> [comment]",
	Short: "Rate an answer by its interaction id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, err := strconv.Atoi(args[0])
		if err != nil {
			return entity.NewValidationError("rating", "must be a number, got %q", args[0])
		}

		req := &entity.FeedbackRequest{
			InteractionID: flagInteractionID,
			Rating:        rating,
		}
		if comment := strings.Join(args[1:], " "); comment != "" {
			req.Comment = &comment
		}

		if _, err := deps.Feedback.Submit(cmd.Context(), req); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Feedback recorded."))
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&flagHealthWait, "wait", false, "retry until the backend is ready (BACKEND_READINESS_*)")
	feedbackCmd.Flags().StringVar(&flagInteractionID, "interaction", "", "interaction id of the rated answer")
	feedbackCmd.MarkFlagRequired("interaction")

	rootCmd.AddCommand(healthCmd, feedbackCmd)
}
