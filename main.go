package main

import "elms-backend/commands"

func main() {
	commands.Execute()
}
