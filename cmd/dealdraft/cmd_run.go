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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/dealdraft/internal/app"
)

var (
	runFiles  []string
	runExport string
)

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Process a single message and print the response as JSON",
	Example: heredoc.Doc(`
		dealdraft run --file brief.pdf
		dealdraft run --file brief.pdf "analyze the deal"
		dealdraft run --llm-provider gemini "what does a typical covenant package look like?"
	`),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "upload a file with the message (repeatable)")
	runCmd.Flags().StringVar(&runExport, "export", "", "write the drafted memo to this path (.md or .xlsx) after the turn")
}

func runRun(cmd *cobra.Command, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" && len(runFiles) == 0 {
		return fmt.Errorf("nothing to do: pass a message, --file, or both")
	}

	uploads, err := app.Upload(runFiles...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	session, cleanup, err := openSession(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := session.Process(ctx, message, uploads)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}

	if runExport != "" {
		path, err := session.Export(ctx, runExport)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported memo to %s\n", path)
	}
	return nil
}
