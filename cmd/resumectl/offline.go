package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"resume-optimizer/internal/extract"
	"resume-optimizer/internal/parser"
	"resume-optimizer/internal/prompt"
	"resume-optimizer/internal/render"
	"resume-optimizer/internal/templates"
)

func (c *cli) promptCmd() *cobra.Command {
	var resumePath, jdPath, templateID string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Compose and print the generation prompt for local inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := templates.Get(templateID); err != nil {
				return errors.Wrap(err, "template")
			}
			data, err := os.ReadFile(resumePath)
			if err != nil {
				return errors.Wrap(err, "read resume")
			}
			resumeText, err := extract.ExtractTextFromBytes(cmd.Context(), data, "", filepath.Base(resumePath))
			if err != nil {
				return errors.Wrap(err, "extract resume text")
			}
			jobDescription := ""
			if strings.TrimSpace(jdPath) != "" {
				jd, err := os.ReadFile(jdPath)
				if err != nil {
					return errors.Wrap(err, "read job description")
				}
				jobDescription = string(jd)
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.Compose(resumeText, jobDescription, templateID))
			return nil
		},
	}
	cmd.Flags().StringVar(&resumePath, "resume", "", "resume file (pdf, docx, txt or rtf)")
	cmd.Flags().StringVar(&jdPath, "jd", "", "job description text file")
	cmd.Flags().StringVar(&templateID, "template", "ats-optimized", "template id")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func (c *cli) renderCmd() *cobra.Command {
	var inPath, outDir, templateID string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Parse a model output file and write the PDF and email HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inPath)
			if err != nil {
				return errors.Wrap(err, "read model output")
			}
			parsed := parser.Parse(string(raw))
			if parsed.Degraded {
				cmd.PrintErrln("warning: no section headers recognized; rendering raw text")
			}

			svc := render.NewService()
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrap(err, "create output dir")
			}
			for _, f := range []render.Format{render.FormatPDF, render.FormatEmail} {
				out, err := svc.Render(parsed.Document, templateID, f)
				if err != nil {
					return errors.Wrapf(err, "render %s", f)
				}
				ext := ".pdf"
				if f == render.FormatEmail {
					ext = ".html"
				}
				path := filepath.Join(outDir, templateID+ext)
				if err := os.WriteFile(path, out.Data, 0o644); err != nil {
					return errors.Wrapf(err, "write %s", path)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(out.Data))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "file holding model output text")
	cmd.Flags().StringVar(&outDir, "out", "./out", "output directory")
	cmd.Flags().StringVar(&templateID, "template", "ats-optimized", "template id")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
