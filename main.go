package main

import "github.com/zinc-sig/asksnap/cmd"

func main() {
	cmd.Execute()
}
