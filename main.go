package main

import (
	"fmt"

	"github.com/inwatch/inwatch/cmd"
)

var version string
var commit string

func main() {
	fmt.Printf("inwatch - version: %s - Commit SHA: %s\n", version, commit)
	cmd.Execute()
}
