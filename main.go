package main

import "github.com/HibikiTatsuno/claude-sync-daemon/cmd"

func main() {
	cmd.Execute()
}
