package main

import "github.com/phillip/church-cms-go/cmd"

func main() {
	cmd.Execute()
}
