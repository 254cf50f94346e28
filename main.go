package main

import (
	"github.com/helixsec/arcops/cmd"
)

func main() {
	cmd.Execute()
}
