package main

import "github.com/wasmkit/watc/internal/cli"

func main() {
	cli.Execute()
}
