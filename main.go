package main

import "github.com/qobs-build/configure/cmd"

func main() {
	cmd.Execute()
}
