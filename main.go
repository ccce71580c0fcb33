package main

import "github.com/shaharia-lab/ntfy-go/cmd"

func main() {
	cmd.Execute()
}
