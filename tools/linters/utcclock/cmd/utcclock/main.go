// Command utcclock runs the utcclock analyzer as a standalone vet tool.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/rezkam/weathertodo/tools/linters/utcclock"
)

func main() {
	singlechecker.Main(utcclock.Analyzer)
}
