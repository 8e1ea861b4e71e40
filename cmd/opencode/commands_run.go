package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haasonsaas/opencode/internal/agent"
)

// buildRunCmd creates the "run" command: a one-shot prompt when text is
// given on the command line, an interactive loop otherwise.
func buildRunCmd() *cobra.Command {
	var (
		sessionID  string
		providerID string
		modelID    string
		mode       string
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run a prompt against the agent",
		Long: `Run a prompt against the agent.

With a prompt argument the command executes one turn and exits. Without
one it reads prompts from stdin until EOF or /exit.

Use --session to continue an existing conversation, --model to pick a
model ("provider/model" or a bare model id).`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			if sessionID == "" {
				session, err := rt.sessions.Create(mode)
				if err != nil {
					return err
				}
				sessionID = session.ID
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sessionID)
				}
				if rt.cfg.Autoshare {
					if url, err := rt.sessions.Share(sessionID); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "shared: %s\n", url)
					}
				}
			}

			pid, mid := providerID, modelID
			if strings.Contains(modelID, "/") {
				parts := strings.SplitN(modelID, "/", 2)
				pid, mid = parts[0], parts[1]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			text := strings.Join(args, " ")
			if text == "" && !term.IsTerminal(int(os.Stdin.Fd())) {
				// Piped input becomes a one-shot prompt.
				piped, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = strings.TrimSpace(string(piped))
			}
			if text != "" {
				return runTurn(ctx, rt, cmd.OutOrStdout(), &agent.ChatRequest{
					SessionID:  sessionID,
					ProviderID: pid,
					ModelID:    mid,
					Mode:       mode,
					Text:       text,
				})
			}

			return runInteractive(ctx, rt, cmd, sessionID, pid, mid, mode)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID to continue")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Model to use (provider/model or model id)")
	cmd.Flags().StringVar(&providerID, "provider", "", "Provider to use")
	cmd.Flags().StringVar(&mode, "mode", "default", "Interaction mode")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress status output")
	return cmd
}

func runInteractive(ctx context.Context, rt *runtime, cmd *cobra.Command, sessionID, providerID, modelID, mode string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == "/exit" || text == "/quit" {
			return nil
		}
		if err := runTurn(ctx, rt, out, &agent.ChatRequest{
			SessionID:  sessionID,
			ProviderID: providerID,
			ModelID:    modelID,
			Mode:       mode,
			Text:       text,
		}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// runTurn drives one agent turn and renders its chunk stream.
func runTurn(ctx context.Context, rt *runtime, out io.Writer, req *agent.ChatRequest) error {
	chunks, err := rt.agent.Chat(ctx, req)
	if err != nil {
		return err
	}
	var turnErr error
	for chunk := range chunks {
		switch chunk.Kind {
		case agent.ChunkContent:
			fmt.Fprint(out, chunk.Content)
		case agent.ChunkStatus:
			fmt.Fprintf(out, "\n[%s]\n", chunk.Status)
		case agent.ChunkToolStart:
			fmt.Fprintf(out, "\n[tool: %s]\n", chunk.ToolName)
		case agent.ChunkToolResult:
			fmt.Fprintf(out, "%s\n", indent(chunk.Output))
		case agent.ChunkToolError:
			fmt.Fprintf(out, "%s\n", indent("error: "+chunk.Output))
		case agent.ChunkError:
			turnErr = fmt.Errorf("%s", chunk.Error)
		case agent.ChunkDone:
			fmt.Fprintln(out)
			if chunk.Usage != nil {
				fmt.Fprintf(out, "[%d tokens]\n", chunk.Usage.TotalTokens)
			}
		}
	}
	return turnErr
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
