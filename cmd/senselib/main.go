// Package main is the entry point for the SenseLib digital library
// service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/senselib/senselib/internal/senselib"
)

func main() {
	senselib.NewApp().Run()
}
