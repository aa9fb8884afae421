package main

import "github.com/brogergvhs/bookharvest/cmd"

func main() {
	cmd.Execute()
}
