package main

import "github.com/safeira/iglootrack/cmd"

func main() {
	cmd.Execute()
}
