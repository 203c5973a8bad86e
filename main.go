package main

import "collection-mapper/cmd"

func main() {
	cmd.Execute()
}
