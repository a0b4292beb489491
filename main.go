package main

import "github.com/NoCodeNode/scamometer/cmd"

func main() {
	cmd.Execute()
}
