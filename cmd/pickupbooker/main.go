package main

import "github.com/example/pickup-booker/cmd"

func main() {
	cmd.Execute()
}
