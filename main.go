package main

import (
	"github.com/cwjcw/Notion2GoogleDriver/cmd"
)

func main() {
	cmd.Execute()
}
