package cli

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasmkit/watc"
	"github.com/wasmkit/watc/wat"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] source.wat",
	Short: "compile a text format module into a binary format module.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output, _ := cmd.Flags().GetString("output")
		debugNames, _ := cmd.Flags().GetBool("debug-names")
		if output == "" {
			output = defaultOutput(input)
		}

		source, err := os.ReadFile(input)
		if err != nil {
			return err
		}

		log.Debugf("compiling %s (%d bytes)", input, len(source))
		compile := watc.Wat2Wasm
		if debugNames {
			compile = watc.Wat2WasmDebug
		}
		wasm, diags, err := compile(source)
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", input, d.Render(source))
		}
		if err != nil {
			if perr, ok := err.(*wat.ParseError); ok {
				fmt.Fprintf(os.Stderr, "%s: %s\n", input, perr.Diagnostic.Render(source))
				os.Exit(1)
			}
			return err
		}

		log.Debugf("writing %s (%d bytes)", output, len(wasm))
		return os.WriteFile(output, wasm, 0o644)
	},
}

// defaultOutput swaps the .wat suffix for .wasm, or appends it.
func defaultOutput(input string) string {
	return strings.TrimSuffix(input, ".wat") + ".wasm"
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringP("output", "o", "", "output file, defaulting to the input with a .wasm suffix")
	compileCmd.Flags().Bool("debug-names", false, "emit a name section carrying source names")
}
