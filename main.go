package main

import "github.com/catalogsync/catalogsync/cmd"

func main() {
	cmd.Execute()
}
