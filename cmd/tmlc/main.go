// Command tmlc is the driver for the TML LLVM back-end: it loads a
// type-checked compilation unit from disk and runs it through
// internal/codegen/llvm to produce textual LLVM IR.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tmlc",
		Short:         "TML LLVM back-end driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newEmitCmd())
	root.AddCommand(newVersionCmd())
	return root
}

const version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tmlc version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "tmlc %s\n", version)
			return nil
		},
	}
}
