// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/blorente/rir/internal/pipeline"
	"github.com/blorente/rir/internal/pirasm"
	"github.com/blorente/rir/internal/printer"
	"github.com/blorente/rir/internal/verify"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pirc <file.pir>")
		os.Exit(1)
	}

	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read file: %s", err)
		os.Exit(1)
	}

	module, err := pirasm.Parse(path, string(source))
	if err != nil {
		color.Red("❌ Syntax error in %s:", path)
		fmt.Println(pirasm.FormatError(string(source), err))
		os.Exit(1)
	}

	for _, fn := range module.Functions {
		if report := verify.Verify(fn); !report.Ok() {
			color.Red("❌ Verification failed for %s:", fn.Name())
			fmt.Print(report.String())
			os.Exit(1)
		}
	}

	for _, fn := range module.Functions {
		if _, err := pipeline.Run(module, fn, pipeline.DefaultOptions()); err != nil {
			color.Red("❌ Optimization aborted for %s: %s", fn.Name(), err)
			os.Exit(1)
		}
		if err := verify.InsertCasts(fn); err != nil {
			color.Red("❌ Cast insertion failed for %s: %s", fn.Name(), err)
			os.Exit(1)
		}
	}

	for _, fn := range module.Functions {
		if report := verify.Verify(fn); !report.Ok() {
			color.Red("❌ Post-optimization verification failed for %s:", fn.Name())
			fmt.Print(report.String())
			os.Exit(1)
		}
	}

	fmt.Println(printer.DumpModule(module))

	color.Green("✅ Successfully processed %s", path)
}
