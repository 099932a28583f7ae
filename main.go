package main

import "github.com/agentic-research/routegen/cmd"

func main() {
	cmd.Execute()
}
