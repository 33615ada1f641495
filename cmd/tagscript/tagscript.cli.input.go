package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itsatony/go-tagscript"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, FilePermissions)
}

// sourceArg returns the optional file argument, stdin when absent.
func sourceArg(args []string) string {
	if len(args) == 0 {
		return InputSourceStdin
	}
	return args[0]
}

// processFlags are the flags shared by every command that processes a
// script.
type processFlags struct {
	vars        []string
	varsFile    string
	charLimit   int
	cooldownKey string
	output      string
	format      string
}

func (f *processFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.vars, FlagVar, FlagVarShort, nil, "variable as key=value (repeatable)")
	flags.StringVarP(&f.varsFile, FlagVarsFile, FlagVarsFileShort, "", "YAML file with a map of variables")
	flags.IntVar(&f.charLimit, FlagCharLimit, 0, "output budget in characters, 0 for none (overrides config)")
	flags.StringVar(&f.cooldownKey, FlagCooldownKey, "", "namespace for cooldown buckets")
	flags.StringVarP(&f.output, FlagOutput, FlagOutputShort, FlagDefaultOutput, "output file")
	flags.StringVarP(&f.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "output format: text, json, yaml")
}

// seed builds the variables from --vars-file and --var. --var wins.
func (f *processFlags) seed() (map[string]tagscript.Adapter, error) {
	values := make(map[string]string)

	if f.varsFile != "" {
		data, err := os.ReadFile(f.varsFile)
		if err != nil {
			return nil, newCLIError(ExitCodeInputError, ErrMsgReadVarsFailed, err)
		}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, newCLIError(ExitCodeInputError, ErrMsgReadVarsFailed, err)
		}
	}

	for _, pair := range f.vars {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, newCLIError(ExitCodeUsageError, ErrMsgInvalidVar, fmt.Errorf("%q", pair))
		}
		values[strings.TrimSpace(key)] = value
	}
	return tagscript.StringVariables(values), nil
}

func (f *processFlags) options(cmd *cobra.Command) ([]tagscript.ProcessOption, error) {
	var opts []tagscript.ProcessOption
	if cmd.Flags().Changed(FlagCharLimit) {
		if f.charLimit < 0 {
			return nil, newCLIError(ExitCodeUsageError, ErrMsgInvalidCharLimit, nil)
		}
		opts = append(opts, tagscript.WithCharLimit(f.charLimit))
	}
	if f.cooldownKey != "" {
		opts = append(opts, tagscript.WithCooldownKey(f.cooldownKey))
	}
	return opts, nil
}

func (f *processFlags) validate() error {
	switch f.format {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return newCLIError(ExitCodeUsageError, ErrMsgInvalidFormat, fmt.Errorf("%q", f.format))
	}
}

// renderOutput is the structured form of a processed script.
type renderOutput struct {
	Body    string         `json:"body" yaml:"body"`
	Actions map[string]any `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// encodeResponse renders a response in the requested format.
func encodeResponse(resp *tagscript.Response, format string) ([]byte, error) {
	out := renderOutput{Body: resp.Body, Actions: resp.Actions}
	if len(out.Actions) == 0 {
		out.Actions = nil
	}
	return encode(out, resp.Body, format)
}

// encode marshals v for json and yaml output and returns text unchanged for
// text output.
func encode(v any, text, format string) ([]byte, error) {
	switch format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, newCLIError(ExitCodeError, ErrMsgMarshalFailed, err)
		}
		return append(data, '\n'), nil
	case OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, newCLIError(ExitCodeError, ErrMsgMarshalFailed, err)
		}
		return data, nil
	default:
		return []byte(text), nil
	}
}

// processError maps an interpreter error to an exit code.
func processError(err error) error {
	switch {
	case tagscript.IsCooldownExceeded(err):
		return newCLIError(ExitCodeCooldown, ErrMsgCooldown, err)
	case tagscript.IsWorkloadExceeded(err), tagscript.IsBlockError(err):
		return newCLIError(ExitCodeValidationError, ErrMsgProcessFailed, err)
	case tagscript.IsTagNotFound(err):
		return newCLIError(ExitCodeInputError, ErrMsgStorageFailed, err)
	default:
		return newCLIError(ExitCodeError, ErrMsgProcessFailed, err)
	}
}
