package main

import "shopsphere/cmd/shopsphere/commands"

func main() {
	commands.Execute()
}
