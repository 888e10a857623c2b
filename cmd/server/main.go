package main

import "github.com/lannaguide/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
