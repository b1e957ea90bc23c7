package main

import "github.com/dyike/CortexCommittee/internal/cli"

func main() {
	cli.Run()
}
