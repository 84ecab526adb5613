package main

import (
	"github.com/vigil-data/vigil/cmd"
)

func main() {
	cmd.Execute()
}
