package main

import "github.com/agenda-lojas/agenda/internal/cli"

func main() {
	cli.Execute()
}
