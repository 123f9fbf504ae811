package main

import "tiptune-shell/cli"

func main() {
	cli.Execute()
}
