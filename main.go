package main

import "github.com/maxvaer/reconx/cmd"

func main() {
	cmd.Execute()
}
