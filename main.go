package main

import "github.com/OpenListTeam/tgdrive/cmd"

func main() {
	cmd.Execute()
}
