package main

import "github.com/Quidge/reactortest/cmd"

func main() {
	cmd.Execute()
}
