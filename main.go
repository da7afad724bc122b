package main

import (
	"sqltune/internal/cli"
)

func main() {
	cli.Execute()
}
