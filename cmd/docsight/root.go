package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docsight/internal/config"
	"github.com/dgallion1/docsight/internal/llm"
	"github.com/dgallion1/docsight/internal/parser"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgFile  string
	logLevel string
	cfg      config.Config
	log      *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "docsight",
		Short:        "Inspect, convert and summarize XML, JSON, PDF and text documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (environment variables override it)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newServeCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newSummarizeCmd(a),
		newAskCmd(a),
		newAnalyzeCmd(a),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	a.log = newLogger(logOut, cfg.LogLevel)
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	l, _ := config.ParseLevel(level)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// newGenerator builds the model client named by LLM_PROVIDER.
func newGenerator(cfg config.Config) llm.Generator {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	case config.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.AnthropicBaseURL, cfg.AnthropicAPIKey, cfg.LLMModel, cfg.LLMTimeout)
	}
	return llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModel, cfg.LLMTimeout)
}

func (a *app) newService(gen llm.Generator, rec llm.CallRecorder) *llm.Service {
	return llm.NewService(gen, a.log, llm.Options{
		RequestsPerMinute: a.cfg.RequestsPerMinute,
		MaxPromptTokens:   a.cfg.MaxPromptTokens,
		MaxConcurrent:     a.cfg.MaxConcurrent,
		Recorder:          rec,
	})
}

// readDocument reads and decodes a local file. The declared type comes from
// the extension unless declared is set.
func (a *app) readDocument(path, declared string) (*parser.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > a.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%s exceeds max size (%d bytes)", path, a.cfg.MaxUploadBytes)
	}
	if declared == "" {
		declared = parser.TypeForFile(path)
	}
	dec := parser.Decoder{FallbackPdftotext: a.cfg.PDFFallbackPdftotext}
	doc, err := dec.Decode(parser.Raw{Data: data, DeclaredType: declared, Filename: filepath.Base(path)})
	if err != nil {
		return nil, err
	}
	a.log.Debug("document decoded", "path", path, "format", doc.Format, "declared_type", declared, "size", len(data))
	return doc, nil
}

func addTypeFlag(cmd *cobra.Command, declared *string) {
	cmd.Flags().StringVar(declared, "type", "", `declared content type, e.g. "application/json" (default: from the file extension)`)
}
