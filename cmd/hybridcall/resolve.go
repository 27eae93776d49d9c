package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flynn-ai/hybridcall/internal/errors"
	"github.com/flynn-ai/hybridcall/internal/tools/schemas"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func newResolveCmd(opts *options) *cobra.Command {
	var (
		text  string
		tools []string
	)

	cmd := &cobra.Command{
		Use:   "resolve [request.json|-]",
		Short: "Resolve one request into tool calls",
		Long: `Resolve one request into tool calls and print the result as JSON.

The request is a JSON object {"messages": [...], "tools": [...]} read from a
file or stdin. Alternatively pass --text with --tool names from the built-in
assistant catalog.`,
		Example: `  hybridcall resolve request.json
  echo '{"messages":[...],"tools":[...]}' | hybridcall resolve -
  hybridcall resolve --text "Set an alarm for 7 AM and play some jazz" --tool set_alarm --tool play_music`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequest(cmd.InOrStdin(), args, text, tools)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.orchestrator.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "user message to resolve")
	cmd.Flags().StringSliceVar(&tools, "tool", nil, "catalog tool to offer (repeatable, default: all)")
	return cmd
}

func readRequest(stdin io.Reader, args []string, text string, tools []string) (protocol.Request, error) {
	if text != "" {
		if len(args) > 0 {
			return protocol.Request{}, errors.User(errors.CodeInvalidInput, "pass either a request file or --text, not both")
		}
		return catalogRequest(text, tools)
	}

	var r io.Reader = stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return protocol.Request{}, errors.Wrap(err, errors.CodeInvalidInput, "failed to open request", errors.CategoryUser)
		}
		defer f.Close()
		r = f
	}

	var req protocol.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return protocol.Request{}, errors.Wrap(err, errors.CodeInvalidInput, "failed to decode request", errors.CategoryUser)
	}
	if len(req.Messages) == 0 {
		return protocol.Request{}, errors.User(errors.CodeInvalidInput, "request has no messages")
	}
	return req, nil
}

func catalogRequest(text string, tools []string) (protocol.Request, error) {
	catalog := schemas.AssistantTools()
	specs := catalog.Specs()
	if len(tools) > 0 {
		specs = catalog.Select(tools...)
		if len(specs) != len(tools) {
			return protocol.Request{}, errors.NewBuilder(errors.CodeInvalidInput, "unknown tool").
				User().
				WithSuggestion(fmt.Sprintf("available tools: %s", strings.Join(catalog.List(), ", "))).
				Build()
		}
	}
	return protocol.Request{
		Messages: []protocol.Message{{Role: protocol.RoleUser, Content: text}},
		Tools:    specs,
	}, nil
}
