package main

import "github.com/KaramelBytes/corrlab/cmd"

func main() {
	cmd.Execute()
}
