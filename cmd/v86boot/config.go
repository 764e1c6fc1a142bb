//go:build !js && !wasm

package main

import (
	"encoding/json"
	"os"

	"tractor.dev/toolkit-go/engine/cli"
	"tractor.dev/v86boot/vm"
)

func configCmd() *cli.Command {
	var (
		s      vm.Settings
		assets string
	)
	cmd := &cli.Command{
		Usage: "config",
		Short: "print the engine options for a set of control values",
		Args:  cli.MaxArgs(0),
		Run: func(ctx *cli.Context, args []string) {
			opts := vm.Build(s).Options(vm.Assets{BaseURL: assets}, vm.Media{}, nil)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			fatal(enc.Encode(opts.Map()))
		},
	}
	vm.BindFlags(cmd.Flags(), &s)
	cmd.Flags().StringVar(&assets, "assets", "", "engine assets base URL")
	return cmd
}
