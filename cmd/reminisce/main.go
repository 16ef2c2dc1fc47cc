package main

import "github.com/reminisce-ai/reminisce/internal/cli"

func main() {
	cli.Execute()
}
