package main

import (
	"github.com/thanhnguyen2187/bindef/cli"
)

func main() {
	cli.Start()
}
