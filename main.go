package main

import "github.com/StatArbTrader/pairs-bot/cmd"

func main() {
	cmd.Execute()
}
