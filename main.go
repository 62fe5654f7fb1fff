package main

import "github.com/endorses/ackit/cmd"

func main() {
	cmd.Execute()
}
