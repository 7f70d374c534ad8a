package main

import "github.com/hivegate/hivegate/cmd/hivegate/cmd"

func main() {
	cmd.Execute()
}
