package main

import "emarknews/cmd"

func main() {
	cmd.Execute()
}
