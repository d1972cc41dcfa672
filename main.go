package main

import "github.com/usama1031/csrf-jwt-server/cmd"

func main() {
	cmd.Execute()
}
