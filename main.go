package main

import "github.com/example/readbot/cmd"

func main() {
	cmd.Execute()
}
