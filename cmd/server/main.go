package main

import (
	_ "github.com/eleven-am/live-captions/docs"
	"github.com/eleven-am/live-captions/internal/bootstrap"
)

// @title Live Captions API
// @version 1.0.0
// @description Lesson history and room usage for the live captions relay

// @BasePath /v1

func main() {
	bootstrap.Run()
}
