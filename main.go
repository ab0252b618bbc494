package main

import "github.com/relaydl/relaydl/cmd"

func main() {
	cmd.Execute()
}
