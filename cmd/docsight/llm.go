package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/export"
	"github.com/dgallion1/docsight/internal/llm"
	"github.com/spf13/cobra"
)

func newSummarizeCmd(a *app) *cobra.Command {
	var declared, pdfPath string
	cmd := &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a document with the configured language model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0], declared)
			if err != nil {
				return err
			}
			svc := a.newService(newGenerator(a.cfg), nil)
			summary, err := svc.SummarizeDocument(cmd.Context(), doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)

			if pdfPath == "" {
				return nil
			}
			data := export.New(a.log, nil).SummaryPDF(filepath.Base(args[0]), summary)
			if len(data) == 0 {
				return errors.New("could not render PDF")
			}
			return os.WriteFile(pdfPath, data, 0o644)
		},
	}
	addTypeFlag(cmd, &declared)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "also write the summary as a PDF report to this path")
	return cmd
}

func newAskCmd(a *app) *cobra.Command {
	var declared string
	cmd := &cobra.Command{
		Use:   "ask <file> <question>...",
		Short: "Answer a question from a document's content",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := llm.ValidateQuestion(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			doc, err := a.readDocument(args[0], declared)
			if err != nil {
				return err
			}
			answer, err := a.newService(newGenerator(a.cfg), nil).Ask(cmd.Context(), doc.Content, question)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	addTypeFlag(cmd, &declared)
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var declared string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze the trades in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0], declared)
			if err != nil {
				return err
			}
			analysis, err := a.newService(newGenerator(a.cfg), nil).AnalyzeTrades(cmd.Context(), doc.Content)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analysis)
			return nil
		},
	}
	addTypeFlag(cmd, &declared)
	return cmd
}
