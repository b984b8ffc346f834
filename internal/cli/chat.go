package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/formatter"
	"github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/futig/knowledge-console/internal/usecase/session"
	"github.com/spf13/cobra"
)

var flagExportDir string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := deps.Sessions.Ensure(ctx, TerminalSessionID)
		defer deps.Sessions.End(ctx, s.ID)

		r := &repl{
			deps:      deps,
			session:   s,
			out:       cmd.OutOrStdout(),
			render:    outputRenderer(),
			exportDir: flagExportDir,
		}
		return r.run(ctx, cmd.InOrStdin())
	},
}

func init() {
	chatCmd.Flags().StringVar(&flagExportDir, "export-dir", ".", "directory /export writes transcripts to")
	rootCmd.AddCommand(chatCmd)
}

// repl is one terminal conversation. Lines starting with "/" are commands,
// everything else is a question.
type repl struct {
	deps      *Deps
	session   *session.Session
	out       io.Writer
	render    renderFunc
	exportDir string
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(r.out, titleStyle.Render("knowledge chat")+dimStyle.Render(" (type /help for commands, /exit to quit)"))
	fmt.Fprintln(r.out)

	for {
		fmt.Fprint(r.out, promptStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		if quit := r.handle(ctx, scanner.Text()); quit {
			fmt.Fprintln(r.out, "Goodbye.")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func (r *repl) handle(ctx context.Context, line string) (quit bool) {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	if !strings.HasPrefix(input, "/") {
		r.ask(ctx, line)
		return false
	}

	fields := strings.Fields(input)
	switch fields[0] {
	case "/exit", "/quit":
		return true
	case "/help":
		r.help()
	case "/clear":
		if err := r.session.Clear(); err != nil {
			printError(r.out, err)
			return false
		}
		fmt.Fprintln(r.out, dimStyle.Render("Conversation cleared."))
	case "/sources":
		latest := r.session.Queries.Latest()
		if latest == nil {
			fmt.Fprintln(r.out, dimStyle.Render("No answer yet."))
			return false
		}
		fmt.Fprint(r.out, r.render(sourcesMarkdown(latest.Sources)))
	case "/metrics":
		latest := r.session.Queries.Latest()
		if latest == nil {
			fmt.Fprintln(r.out, dimStyle.Render("No answer yet."))
			return false
		}
		fmt.Fprintln(r.out, metricsLine(render.MetricsOf(latest.Response)))
	case "/search":
		r.search(ctx, strings.TrimSpace(strings.TrimPrefix(input, "/search")))
	case "/status":
		r.status(ctx)
	case "/export":
		var format string
		if len(fields) > 1 {
			format = fields[1]
		}
		r.export(format)
	case "/feedback":
		r.feedback(ctx, fields[1:])
	default:
		fmt.Fprintln(r.out, warnStyle.Render("Unknown command "+fields[0]+", type /help"))
	}
	return false
}

func (r *repl) help() {
	fmt.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  /search <query>           - standalone search, conversation untouched")
	fmt.Fprintln(r.out, "  /sources                  - sources of the last answer")
	fmt.Fprintln(r.out, "  /metrics                  - latency, tokens, cost and confidence of the last answer")
	fmt.Fprintln(r.out, "  /status                   - index status")
	fmt.Fprintln(r.out, "  /export [md|pdf|docx]     - save the transcript")
	fmt.Fprintln(r.out, "  /feedback <1-5> [comment] - rate the last answer")
	fmt.Fprintln(r.out, "  /clear                    - clear conversation history")
	fmt.Fprintln(r.out, "  /exit                     - quit chat")
}

func (r *repl) ask(ctx context.Context, text string) {
	fmt.Fprintln(r.out, dimStyle.Render("[Searching...]"))

	result, err := r.session.Queries.Ask(ctx, text)
	if err != nil {
		if errors.Is(err, entity.ErrEmptyQuery) || errors.Is(err, entity.ErrQueryInFlight) {
			printError(r.out, err)
			return
		}
		// the failure is already part of the conversation
		if msgs := r.session.Store.Messages(); len(msgs) > 0 {
			fmt.Fprintln(r.out, errorStyle.Render(msgs[len(msgs)-1].Content))
			return
		}
		printError(r.out, err)
		return
	}

	fmt.Fprint(r.out, r.render(answerMarkdown(result)))
	fmt.Fprintln(r.out, metricsLine(render.MetricsOf(result.Response)))
}

func (r *repl) search(ctx context.Context, text string) {
	result, err := r.session.Queries.Search(ctx, text)
	if err != nil {
		printError(r.out, err)
		return
	}
	fmt.Fprint(r.out, r.render(sourcesMarkdown(result.Sources)))
	fmt.Fprintln(r.out, metricsLine(render.MetricsOf(result.Response)))
}

func (r *repl) status(ctx context.Context) {
	status, err := r.deps.Ingest.GetStatus(ctx)
	if err != nil {
		printError(r.out, err)
		return
	}
	fmt.Fprintln(r.out, render.StatusText(status, statusDocumentLimit))
}

func (r *repl) export(format string) {
	path, err := exportTranscript(r.deps.Formatters, r.session, format, r.exportDir)
	if err != nil {
		printError(r.out, err)
		return
	}
	if path == "" {
		fmt.Fprintln(r.out, dimStyle.Render("Nothing to export yet."))
		return
	}
	fmt.Fprintln(r.out, successStyle.Render("Transcript saved to "+path))
}

func (r *repl) feedback(ctx context.Context, args []string) {
	latest := r.session.Queries.Latest()
	if latest == nil {
		fmt.Fprintln(r.out, dimStyle.Render("No answer to rate yet."))
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(r.out, warnStyle.Render("Usage: /feedback <1-5> [comment]"))
		return
	}

	rating, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(r.out, warnStyle.Render("Usage: /feedback <1-5> [comment]"))
		return
	}

	req := &entity.FeedbackRequest{
		InteractionID: latest.InteractionID(r.session.ID),
		Rating:        rating,
	}
	if comment := strings.Join(args[1:], " "); comment != "" {
		req.Comment = &comment
	}

	if _, err := r.deps.Feedback.Submit(ctx, req); err != nil {
		printError(r.out, err)
		return
	}
	fmt.Fprintln(r.out, successStyle.Render("Thanks for the feedback."))
}

// exportTranscript writes the session history to dir and returns the file
// path, or "" when the conversation is empty.
func exportTranscript(factory *formatter.Factory, s *session.Session, format, dir string) (string, error) {
	messages := s.Store.Messages()
	if len(messages) == 0 {
		return "", nil
	}

	exportFormat, err := entity.ParseExportFormat(format)
	if err != nil {
		return "", err
	}
	f, err := factory.Create(exportFormat)
	if err != nil {
		return "", err
	}

	transcript := &entity.Transcript{
		SessionID:  s.ID,
		ExportedAt: time.Now(),
		Messages:   messages,
	}
	data, err := f.Format(transcript)
	if err != nil {
		return "", fmt.Errorf("format transcript: %w", err)
	}

	path := filepath.Join(dir, formatter.FileName(transcript, f))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}
