package main

import "github.com/erezos/flappyjet-backend-sub006/cmd"

func main() {
	cmd.Execute()
}
