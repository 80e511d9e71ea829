package main

import "github.com/pfrederiksen/silat-watch/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
