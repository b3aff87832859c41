package main

import (
	"github.com/jjtimmons/cloneops/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
