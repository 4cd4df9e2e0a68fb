package main

import (
	"log"

	"github.com/ReadWriteReboot/ClassroomBank/internal/config"
	"github.com/ReadWriteReboot/ClassroomBank/internal/server"
)

func main() {
	cfg := config.Load()

	if err := server.Run(cfg); err != nil {
		log.Fatalf("ClassBank service failed: %v", err)
	}
}
