package main

import (
	"os"

	"github.com/Omeraluf/israeli-media-monitor/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
