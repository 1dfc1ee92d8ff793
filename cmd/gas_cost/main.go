package main

import "conviction_voting/internal/cli"

func main() {
	cli.ExecuteGasCost()
}
