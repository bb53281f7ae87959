package main

import "github.com/ownyourdata/semcon/internal/client/cli"

func main() {
	cli.Execute()
}
