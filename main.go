package main

import "github.com/KaramelBytes/lfbdash-cli/cmd"

func main() {
	cmd.Execute()
}
