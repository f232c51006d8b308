package main

import "github.com/kickstorm/workspacectl/internal/cli"

func main() {
	cli.Execute()
}
