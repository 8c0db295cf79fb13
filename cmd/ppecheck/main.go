package main

import "github.com/ppecheck/ppecheck/internal/cli"

func main() {
	cli.Execute()
}
