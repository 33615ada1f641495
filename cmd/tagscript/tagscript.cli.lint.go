package main

import (
	"bytes"
	"fmt"

	"github.com/itsatony/go-tagscript"
	"github.com/spf13/cobra"
)

// lintReport is the structured output of the lint command.
type lintReport struct {
	OK         bool                   `json:"ok" yaml:"ok"`
	Unresolved []tagscript.Unresolved `json:"unresolved" yaml:"unresolved"`
	Malformed  []tagscript.NodeTrace  `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

func newLintCmd(app *cliApp) *cobra.Command {
	var pf processFlags

	cmd := &cobra.Command{
		Use:   CmdNameLint + " [file|-]",
		Short: "Report tags that no block resolves",
		Long: `Process a script with tracing and list every tag that stayed unresolved,
with the declarations the author may have meant. Exits with status 3 when
any tag is unresolved or malformed.`,
		Example: `  tagscript lint greeting.tag --var user=Ada
  tagscript lint greeting.tag -F json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pf.validate(); err != nil {
				return err
			}
			interp, err := app.interpreter()
			if err != nil {
				return err
			}

			content, err := readInput(sourceArg(args), app.stdin)
			if err != nil {
				return newCLIError(ExitCodeInputError, ErrMsgReadFileFailed, err)
			}
			seed, err := pf.seed()
			if err != nil {
				return err
			}
			opts, err := pf.options(cmd)
			if err != nil {
				return err
			}

			analysis, err := interp.Analyze(cmd.Context(), string(content), seed, opts...)
			if err != nil {
				return processError(err)
			}

			report := lintReport{
				OK:         analysis.OK(),
				Unresolved: analysis.Unresolved,
				Malformed:  analysis.Malformed,
			}
			data, err := encode(report, formatLintText(analysis), pf.format)
			if err != nil {
				return err
			}
			if err := writeOutput(pf.output, data, app.stdout); err != nil {
				return newCLIError(ExitCodeError, ErrMsgWriteOutputFailed, err)
			}

			if !analysis.OK() {
				return newCLIError(ExitCodeValidationError, ErrMsgLintIssues, nil)
			}
			return nil
		},
	}

	pf.register(cmd)
	return cmd
}

func formatLintText(analysis *tagscript.Analysis) string {
	if analysis.OK() {
		return LintTextSuccess + FmtNewline
	}

	var buf bytes.Buffer
	for _, u := range analysis.Unresolved {
		fmt.Fprintf(&buf, LintTextUnresolved, u.Raw, tagscript.FormatSuggestions(u.Suggestions))
	}
	for _, m := range analysis.Malformed {
		fmt.Fprintf(&buf, LintTextMalformed, m.Raw, m.Start)
	}
	fmt.Fprintf(&buf, LintTextSummary, len(analysis.Unresolved), len(analysis.Malformed))
	return buf.String()
}
