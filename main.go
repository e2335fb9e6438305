package main

import "github.com/ridoystarlord/ormschema/cmd"

func main() {
	cmd.Execute()
}
