package main

import "pagefind/internal/cli"

func main() {
	cli.Execute()
}
