package main

import "billing/internal/cli"

func main() {
	cli.Execute()
}
