package main

import (
	cmd "github.com/kerbaras/skypack/cmd/skypack"
)

func main() {
	cmd.Execute()
}
