package main

import (
	"db-wipe/cmd"
)

func main() {
	cmd.Execute()
}
