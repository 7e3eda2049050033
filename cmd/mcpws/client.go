package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/mcpws/internal/cli"
	"github.com/hyperjump/mcpws/internal/gateway"
	"github.com/hyperjump/mcpws/internal/models"
	"github.com/hyperjump/mcpws/internal/upstream"
	"github.com/spf13/cobra"
)

const defaultTraceTool = "lf.summarize"

type clientOptions struct {
	url   string
	token string
}

func (o *clientOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.url, "url", "", "gateway or tool server base URL (default: gateway.url)")
	cmd.Flags().StringVar(&o.token, "token", "", "bearer token (default: gateway.token)")
}

// clientCtx bundles what every client command needs.
type clientCtx struct {
	client *gateway.Client
	format cli.OutputFormat
}

func (o *clientOptions) connect(root *rootOptions) (*clientCtx, error) {
	format, err := root.format()
	if err != nil {
		return nil, err
	}
	cfg, logger, err := root.load()
	if err != nil {
		return nil, err
	}
	if o.url != "" {
		cfg.Gateway.URL = o.url
	}
	if o.token != "" {
		cfg.Gateway.Token = o.token
	}
	return &clientCtx{
		client: gateway.NewFromConfig(cfg.Gateway, logger.Named("gateway")),
		format: format,
	}, nil
}

func newToolsCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools exposed by a gateway or tool server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			tools, err := c.client.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteTools(cmd.OutOrStdout(), tools, c.format)
		},
	}
	opts.register(cmd)
	return cmd
}

func newCallCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var trace bool
	cmd := &cobra.Command{
		Use:   "call <tool> [json-payload]",
		Short: "Invoke a tool with a JSON payload",
		Example: `  mcpws call calc.add '{"a": 2, "b": 3}'
  mcpws call lf.summarize '{"text": "long text"}' --trace`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]interface{}{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &payload); err != nil {
					return fmt.Errorf("payload must be a JSON object: %w", err)
				}
			}
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			res, err := c.client.Invoke(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			if trace {
				return cli.WriteJSON(cmd.OutOrStdout(), map[string]interface{}{
					"correlation_id": res.CorrelationID,
					"response":       res.Response,
				})
			}
			return cli.WriteJSON(cmd.OutOrStdout(), res.Response)
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "print the correlation id alongside the response")
	opts.register(cmd)
	return cmd
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var k int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the ingested documents (docling.query)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			ans, err := c.client.Ask(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), ans, c.format)
		},
	}
	cmd.Flags().IntVar(&k, "k", models.DefaultK, "number of passages to retrieve")
	opts.register(cmd)
	return cmd
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var metas string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Upload documents into the index (docling.ingest)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var common map[string]interface{}
			if metas != "" {
				if err := json.Unmarshal([]byte(metas), &common); err != nil {
					return fmt.Errorf("--metas must be a JSON object: %w", err)
				}
			}
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			res, err := c.client.Ingest(cmd.Context(), args, common)
			if err != nil {
				return err
			}
			return cli.WriteIngest(cmd.OutOrStdout(), res, c.format)
		},
	}
	cmd.Flags().StringVar(&metas, "metas", "", "JSON object of metadata applied to every file")
	opts.register(cmd)
	return cmd
}

func newParseCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	var images bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract text from a document without indexing it (docling.parse)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			res, err := c.client.Parse(cmd.Context(), args[0], images)
			if err != nil {
				return err
			}
			return cli.WriteParse(cmd.OutOrStdout(), res, c.format)
		},
	}
	cmd.Flags().BoolVar(&images, "images", false, "return embedded images as base64")
	opts.register(cmd)
	return cmd
}

func newProbeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Smoke-test upstream services",
	}
	cmd.AddCommand(newProbeLangflowCmd(root), newProbeTraceCmd(root))
	return cmd
}

func newProbeLangflowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "langflow [text]",
		Short: "Send a chat message straight to a Langflow flow",
		Long: `Send a chat message straight to a Langflow flow. The flow URL is
LANGFLOW_URL, or LANGFLOW_BASE plus LANGFLOW_FLOW_ID, or upstream.langflow_url.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			text := "hello from mcpws"
			if len(args) == 1 {
				text = args[0]
			}
			url := langflowURL(os.LookupEnv, cfg.Upstream.LangflowURL)
			client := upstream.NewLangflowClient(url, seconds(cfg.Upstream.LangflowTimeout))
			reply, raw, err := client.Probe(cmd.Context(), text)
			if err != nil {
				return err
			}
			if reply != "" {
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}
			return cli.WriteJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func newProbeTraceCmd(root *rootOptions) *cobra.Command {
	opts := &clientOptions{}
	cmd := &cobra.Command{
		Use:   "trace [text]",
		Short: "Invoke GATEWAY_TOOL (default lf.summarize) and print the correlation id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := "trace me"
			if len(args) == 1 {
				text = args[0]
			}
			tool := defaultTraceTool
			if v, ok := os.LookupEnv("GATEWAY_TOOL"); ok && v != "" {
				tool = v
			}
			c, err := opts.connect(root)
			if err != nil {
				return err
			}
			res, err := c.client.Invoke(cmd.Context(), tool, map[string]string{"text": text})
			if err != nil {
				return err
			}
			return cli.WriteJSON(cmd.OutOrStdout(), map[string]interface{}{
				"correlation_id": res.CorrelationID,
				"response":       res.Response,
			})
		},
	}
	opts.register(cmd)
	return cmd
}

// langflowURL prefers LANGFLOW_URL, then LANGFLOW_BASE with LANGFLOW_FLOW_ID,
// then fallback.
func langflowURL(lookup func(string) (string, bool), fallback string) string {
	if v, ok := lookup("LANGFLOW_URL"); ok && v != "" {
		return v
	}
	if id, ok := lookup("LANGFLOW_FLOW_ID"); ok && id != "" {
		base, _ := lookup("LANGFLOW_BASE")
		return upstream.FlowURL(base, id)
	}
	return fallback
}
