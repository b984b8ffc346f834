package main

import (
	"github.com/futig/knowledge-console/internal/builder"
	"github.com/futig/knowledge-console/internal/cli"
)

func main() {
	cli.Execute(builder.BuildCLI)
}
