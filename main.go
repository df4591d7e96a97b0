package main

import "github.com/agentic-research/figdex/cmd"

func main() {
	cmd.Execute()
}
