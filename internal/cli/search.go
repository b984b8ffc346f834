package cli

import (
	"fmt"
	"strings"

	"github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/spf13/cobra"
)

var flagPlain bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer with its sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := deps.Sessions.Ensure(ctx, TerminalSessionID)
		defer deps.Sessions.End(ctx, s.ID)

		result, err := s.Queries.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		md := outputRenderer()
		fmt.Fprint(out, md(answerMarkdown(result)))
		fmt.Fprint(out, md(sourcesMarkdown(result.Sources)))
		fmt.Fprintln(out, metricsLine(render.MetricsOf(result.Response)))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a standalone search and print the retrieved passages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := deps.Sessions.Ensure(ctx, TerminalSessionID)
		defer deps.Sessions.End(ctx, s.ID)

		result, err := s.Queries.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, outputRenderer()(sourcesMarkdown(result.Sources)))
		fmt.Fprintln(out, metricsLine(render.MetricsOf(result.Response)))
		return nil
	},
}

func outputRenderer() renderFunc {
	if flagPlain {
		return plain
	}
	return newRenderer(wordWrap)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false, "print raw markdown instead of rendering it")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
}
