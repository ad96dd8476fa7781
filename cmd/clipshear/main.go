package main

import "github.com/clipshear/clipshear/internal/cli"

func main() {
	cli.Main()
}
