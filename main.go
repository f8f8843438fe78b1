package main

import "github.com/perpsim/perpsim/cmd"

func main() {
	cmd.Execute()
}
