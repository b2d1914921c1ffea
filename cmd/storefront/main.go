package main

import "github.com/AFFWORLDT/WHITLIN-sub002/internal/cli"

func main() {
	cli.Execute()
}
