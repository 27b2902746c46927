package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/baboon/internal/compiler"
	"github.com/roach88/baboon/internal/ir"
)

// CompileOptions are the compile flags.
type CompileOptions struct {
	*RootOptions
	Output string
}

// CompiledTopic is a topic with its content hash.
type CompiledTopic struct {
	ir.Topic
	Hash string `json:"hash"`
}

// CompilationResult holds the compiled topics and net.
type CompilationResult struct {
	IRVersion string          `json:"ir_version"`
	SpecHash  string          `json:"spec_hash"`
	Topics    []CompiledTopic `json:"topics"`
	Net       *ir.NetSpec     `json:"net,omitempty"`
	NetHash   string          `json:"net_hash,omitempty"`
}

// NewCompileCommand returns `baboon compile`.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile topic specs to IR",
		Long: `Compile CUE, YAML and JSON topic specs to the IR used by the engine.

Every topic is normalized (NFC names, de-duplicated guard sets) and
stamped with its content hash. The spec hash identifies the full set of
topics independent of declaration order.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)

	// A nil result means the directory itself is unusable.
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d spec file(s) in %s", loadResult.FileCount(), specsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := BuildCompilationResult(loadResult.Spec)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	for _, t := range result.Topics {
		formatter.VerboseLog("Compiled topic: %s (%s)", t.Name, t.Hash[:12])
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// BuildCompilationResult hashes the topics and net of spec.
func BuildCompilationResult(spec *compiler.Spec) (*CompilationResult, error) {
	result := &CompilationResult{
		IRVersion: ir.IRVersion,
		Topics:    make([]CompiledTopic, 0, len(spec.Topics)),
		Net:       spec.Net,
	}
	for _, t := range spec.Topics {
		h, err := ir.TopicHash(t)
		if err != nil {
			return nil, fmt.Errorf("hash topic %q: %w", t.Name, err)
		}
		result.Topics = append(result.Topics, CompiledTopic{Topic: t, Hash: h})
	}

	specHash, err := ir.SpecHash(spec.Topics)
	if err != nil {
		return nil, err
	}
	result.SpecHash = specHash

	if spec.Net != nil {
		if result.NetHash, err = ir.NetHash(*spec.Net); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d topic(s)\n\n", len(result.Topics))

	fmt.Fprintln(w, "Topics:")
	for _, t := range result.Topics {
		fmt.Fprintf(w, "  %s: %d step(s), %d fire callback(s)\n",
			t.Name, t.Steps(), len(t.FireCallbacks))
	}
	fmt.Fprintln(w)

	if result.Net != nil {
		fmt.Fprintf(w, "Net: %d place(s), %d transition(s), %d guard(s)\n\n",
			len(result.Net.Places), len(result.Net.Transitions), len(result.Net.Guards))
	}

	fmt.Fprintf(w, "Spec hash: %s\n", result.SpecHash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", outputFile)
	}
	return nil
}

func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors reports every compile error; the JSON data member
// lists all of them.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(w, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(w, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result to a file.
func writeIRToFile(result *CompilationResult, filename string) error {
	// Indented for readability; canonical JSON is used only for hashing
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
