package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tml-lang/tmlc/internal/codegen/llvm"
	"github.com/tml-lang/tmlc/internal/diag"
	"github.com/tml-lang/tmlc/internal/unit"
)

func newEmitCmd() *cobra.Command {
	var (
		out          string
		targetTriple string
		dataLayout   string
	)

	cmd := &cobra.Command{
		Use:   "emit <unit.json>",
		Short: "Lower a type-checked compilation unit to LLVM IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(cmd, args[0], out, targetTriple, dataLayout)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output .ll path (defaults to stdout)")
	cmd.Flags().StringVar(&targetTriple, "target-triple", "", "override the module's target triple")
	cmd.Flags().StringVar(&dataLayout, "datalayout", "", "override the module's target datalayout")
	return cmd
}

func runEmit(cmd *cobra.Command, unitPath, out, targetTriple, dataLayout string) error {
	data, err := os.ReadFile(unitPath)
	if err != nil {
		return errors.Wrap(err, "reading compilation unit")
	}

	u, err := unit.Load(data)
	if err != nil {
		return errors.Wrap(err, "loading compilation unit")
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "tmlc: emitting %s\n", unitPath)

	g := llvm.NewEmitter()
	g.SetTypeInfo(u.TypeInfo)
	g.SetModules(u.Modules)
	g.SetTargetTriple(targetTriple)
	g.SetDataLayout(dataLayout)

	ir, genErr := g.Generate(u.File)
	if len(g.Errors) > 0 {
		f := diag.NewFormatter()
		for _, d := range g.Errors {
			f.Format(d)
		}
	}
	if genErr != nil {
		return fmt.Errorf("emission failed for %s", unitPath)
	}

	if out == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), ir)
		return err
	}
	if err := os.WriteFile(out, []byte(ir), 0o644); err != nil {
		return errors.Wrap(err, "writing LLVM IR output")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "tmlc: wrote %s\n", out)
	return nil
}
