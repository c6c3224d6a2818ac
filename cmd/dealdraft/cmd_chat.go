// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/dealdraft/internal/app"
	"github.com/teradata-labs/dealdraft/pkg/ingest"
	"github.com/teradata-labs/dealdraft/pkg/orchestration"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive drafting session",
	Long: heredoc.Doc(`
		Start an interactive drafting session. Type messages to talk to the
		orchestrator, or use a slash command:

		  /upload <file>...   add documents (pdf, xlsx, txt, md, csv)
		  /state              show workflow progress and the session digest
		  /export <path>      write the drafted memo (.md or .xlsx)
		  /usage              show model usage by caller
		  /reset              start over with an empty session
		  /quit               exit

		Ctrl-C cancels the turn in progress.
	`),
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	r := &repl{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}

	session, cleanup, err := openSession(cmd.Context(), app.Options{
		OnProgress: r.progress,
		OnChunk:    r.chunk,
	})
	if err != nil {
		return err
	}
	defer cleanup()
	r.session = session

	fmt.Fprintf(r.out, "Dealdraft %s (session %s). Type /help for commands.\n", rootCmd.Version, session.State().ID)
	return r.run(cmd.Context(), cmd.InOrStdin())
}

// repl reads lines from the user and prints replies. Replies streamed through
// chunk are not printed again.
type repl struct {
	session *app.App
	out     io.Writer
	errOut  io.Writer

	streamed bool
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit, err := r.handle(turnCtx, line)
		stop()
		if err != nil {
			fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// handle runs one input line. It reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.turn(ctx, line, nil)
	}

	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprint(r.out, chatCmd.Long)

	case "/upload":
		if rest == "" {
			return false, fmt.Errorf("usage: /upload <file>...")
		}
		files, err := app.Upload(strings.Fields(rest)...)
		if err != nil {
			return false, err
		}
		return false, r.turn(ctx, "", files)

	case "/state":
		r.printState()

	case "/export":
		if rest == "" {
			return false, fmt.Errorf("usage: /export <path>")
		}
		path, err := r.session.Export(ctx, rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "✓ Exported memo to %s\n", path)

	case "/usage":
		return false, r.printUsage(ctx)

	case "/reset":
		r.session.Reset()
		fmt.Fprintln(r.out, "Session cleared.")

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", command)
	}
	return false, nil
}

func (r *repl) turn(ctx context.Context, message string, uploads []ingest.File) error {
	r.streamed = false
	resp, err := r.session.Process(ctx, message, uploads)
	if err != nil {
		return err
	}
	r.reply(resp)
	return nil
}

// reply prints resp after any streamed chunks.
func (r *repl) reply(resp *orchestration.Response) {
	switch {
	case resp.Failed && r.streamed:
		// the streamed text was abandoned
		fmt.Fprintf(r.out, "\n%s\n", resp.Text)
	case r.streamed:
		fmt.Fprintln(r.out)
	default:
		fmt.Fprintln(r.out, resp.Text)
	}
	if len(resp.SourcesUsed) > 0 {
		fmt.Fprintf(r.out, "\nSources: %s\n", strings.Join(resp.SourcesUsed, ", "))
	}
	if resp.RequiresApproval {
		fmt.Fprintln(r.out, "\n(awaiting your approval)")
	}
	if resp.SuggestedNext != "" && resp.SuggestedNext != orchestration.IntentGeneral {
		fmt.Fprintf(r.out, "\nSuggested next: %s\n", resp.SuggestedNext.Description())
	}
}

func (r *repl) progress(step orchestration.ProgressStep) {
	line := fmt.Sprintf("  [%s] %s", step.Status, step.Name)
	if step.Detail != "" {
		line += ": " + step.Detail
	}
	fmt.Fprintln(r.errOut, line)
}

func (r *repl) chunk(text string) {
	r.streamed = true
	fmt.Fprint(r.out, text)
}

func (r *repl) printState() {
	st := r.session.State()
	task := orchestration.Track(st)

	fmt.Fprintf(r.out, "Phase: %s\n", task.Phase)
	for _, s := range task.Steps {
		mark := " "
		if s.Completed {
			mark = "x"
		}
		fmt.Fprintf(r.out, "  [%s] %s\n", mark, s.Name)
	}
	fmt.Fprintln(r.out)
	fmt.Fprint(r.out, st.Digest())
}

func (r *repl) printUsage(ctx context.Context) error {
	totals, err := r.session.Usage(ctx)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Fprintln(r.out, "No model calls yet.")
		return nil
	}

	var cost float64
	fmt.Fprintf(r.out, "%-12s %6s %8s %10s %10s %10s\n", "CALLER", "CALLS", "FAILED", "INPUT", "OUTPUT", "COST")
	for _, t := range totals {
		fmt.Fprintf(r.out, "%-12s %6d %8d %10d %10d %10.4f\n",
			t.Caller, t.Calls, t.Failures, t.InputTokens, t.OutputTokens, t.CostUSD)
		cost += t.CostUSD
	}
	fmt.Fprintf(r.out, "Total cost: $%.4f\n", cost)
	return nil
}
