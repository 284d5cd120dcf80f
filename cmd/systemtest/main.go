package main

import (
	"os"

	"github.com/gaoyaxin/kafka/cmd/systemtest/cmd"
	"github.com/gaoyaxin/kafka/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	err := cmd.RootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}
