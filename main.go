package main

import (
	"os"

	"portmirror/cmd"
	"portmirror/infrastructure/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Logger.Errorf("%+v", err)
		log.Sync()
		os.Exit(1)
	}
	log.Sync()
}
