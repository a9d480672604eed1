// Command stories manages user stories and acceptance criteria and serves
// them as MCP tools.
package main

import (
	"os"

	"github.com/mesh-intelligence/stories/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
