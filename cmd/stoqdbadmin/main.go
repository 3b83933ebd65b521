package main

import "stoqlib/cmd/stoqdbadmin/commands"

func main() {
	commands.Execute()
}
