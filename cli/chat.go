package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/toolmesh/agent"
	"github.com/hupe1980/toolmesh/config"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/orchestrator"
)

// NewChatCmd creates the "chat" command: an interactive loop over stdin.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent on a conversation thread",
		Long: `Reads one message per line from stdin and prints the agent's reply.
Type /quit to leave. Reusing --thread with a durable checkpoint backend
resumes an earlier conversation.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringP("thread", "t", "", "Conversation thread id (default: random)")
	cmd.Flags().Bool("auto-approve", false, "Approve every tool call that requires confirmation")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	threadID, _ := cmd.Flags().GetString("thread")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	cfg, err := config.Load(configPath)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return exitError(exitConfig, "log.level: %v", err)
	}

	if threadID == "" {
		threadID = uuid.NewString()
	}

	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	var approver agent.Approver = &promptApprover{in: in, out: out}
	if autoApprove {
		approver = agent.ApproverFunc(func(context.Context, core.FunctionCall, core.Descriptor) (bool, error) {
			return true, nil
		})
	}

	ctx := cmd.Context()

	a, err := newAgent(ctx, cfg, logger, approver)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	if err := a.Initialize(ctx); err != nil {
		return exitError(exitConfig, "initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("chat.close.failed", "error", err.Error())
		}
	}()

	fmt.Fprintf(out, "thread %s, %d tools loaded\n", threadID, a.Registry().Len())

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			break
		}

		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		reply := a.MessageAgent(ctx, threadID, line)
		printReply(out, cmd.ErrOrStderr(), reply.Text, reply.Err, unresolvedNames(reply.Unresolved))

		if ctx.Err() != nil {
			return exitError(exitRuntime, "%v", ctx.Err())
		}
	}

	if err := in.Err(); err != nil {
		return exitError(exitRuntime, "read input: %v", err)
	}

	fmt.Fprintln(out)

	return nil
}

func printReply(out, errOut io.Writer, text string, err error, unresolved []string) {
	if len(unresolved) > 0 {
		fmt.Fprintf(errOut, "note: no tool available for %s\n", strings.Join(unresolved, ", "))
	}

	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return
	}

	fmt.Fprintln(out, text)
}

func unresolvedNames(items []orchestrator.Unresolved) []string {
	names := make([]string, len(items))
	for i, u := range items {
		names[i] = u.Requested
	}
	return names
}

// promptApprover asks on the chat terminal before running a sensitive tool.
type promptApprover struct {
	mu  sync.Mutex
	in  *bufio.Scanner
	out io.Writer
}

var _ agent.Approver = (*promptApprover)(nil)

func (p *promptApprover) Approve(_ context.Context, call core.FunctionCall, desc core.Descriptor) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "allow %s(%s)? [y/N] ", desc.Name, call.Arguments)

	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(p.in.Text()))

	return answer == "y" || answer == "yes", nil
}
