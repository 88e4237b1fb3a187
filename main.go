package main

import "github.com/openlearn/edusync/cmd"

func main() {
	cmd.Execute()
}
