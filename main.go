package main

import (
	"github.com/openclaw/clawtographer/cmd"
)

func main() {
	cmd.Execute()
}
