package main

import (
	"log"
	"os"

	"github.com/leweaver/filewatch/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Keep a stray panic from escaping as a bare stack trace.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic: %v", r)
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		log.Fatalf("filewatch: %v", err)
	}
}
