package main

import "github.com/mcoot/minimarket/internal/cli"

func main() {
	cli.Execute()
}
